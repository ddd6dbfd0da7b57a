package models

// DecodeOutcome records which path percent-decoding took for one payload
// field: a clean decode, or a fallback to the raw value after a decode error.
type DecodeOutcome int

const (
	FieldDecoded DecodeOutcome = iota
	FieldRaw
)

func (o DecodeOutcome) String() string {
	if o == FieldRaw {
		return "raw-fallback"
	}
	return "decoded"
}

// CheckInPayload is the canonical 4-field check-in tuple produced by parsing
// a scanned or typed payload. Sig is opaque to the client; the server
// verifies it. Outcomes records the decode path per field ("rid", "mid",
// "ts", "sig").
type CheckInPayload struct {
	RID string
	MID string
	TS  string
	Sig string

	Outcomes map[string]DecodeOutcome
}

// QRCheckInRequest is the body of POST /reservations/checkin. When
// ArrivedCount is nil the server defaults it to the reservation's party size.
type QRCheckInRequest struct {
	RID          string `json:"rid"`
	MID          string `json:"mid"`
	TS           string `json:"ts"`
	Sig          string `json:"sig"`
	ArrivedCount *int   `json:"arrivedCount,omitempty"`
}

// ManualCheckInRequest is the body of POST /reservations/{id}/checkin-manual.
type ManualCheckInRequest struct {
	ArrivedCount *int `json:"arrivedCount,omitempty"`
}

// ArrivedCountRequest is the body of PATCH /reservations/{id}/arrived-count.
type ArrivedCountRequest struct {
	ArrivedCount int `json:"arrivedCount"`
}

// CheckInResult carries the server's arrival verdict. LateMinutes and
// Underattended are computed server-side and passed through untouched.
type CheckInResult struct {
	OK            bool   `json:"ok"`
	ReservationID string `json:"reservationId,omitempty"`
	ArrivedCount  int    `json:"arrivedCount"`
	LateMinutes   int    `json:"lateMinutes"`
	Underattended *bool  `json:"underattended,omitempty"`
}
