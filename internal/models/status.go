package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the closed set of reservation states. Raw strings from the wire
// are normalized once through ParseStatus; nothing downstream compares
// unparsed status strings.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusArrived   Status = "arrived"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes a wire status string into the closed enum.
// The backend historically emitted both "canceled" and "cancelled";
// both map to StatusCancelled here.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "arrived":
		return StatusArrived, nil
	case "no_show", "no-show", "noshow":
		return StatusNoShow, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", raw)
	}
}

// Terminal reports whether no further transition can leave this status.
func (s Status) Terminal() bool {
	return s == StatusArrived || s == StatusNoShow || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}
