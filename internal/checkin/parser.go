package checkin

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/umutugur/rezzy-core/internal/models"
)

// InvalidPayloadError means no interpretation of the scanned or typed input
// produced all four non-empty check-in fields. It is raised synchronously;
// nothing reaches the network layer.
type InvalidPayloadError struct {
	Message string
}

func (e *InvalidPayloadError) Error() string {
	return e.Message
}

func errNotInExpectedFormat() error {
	return &InvalidPayloadError{Message: "QR payload not in an expected format"}
}

// Fields is an already-structured check-in input, e.g. from a deep link
// router that split the payload before handing it over.
type Fields struct {
	RID string
	MID string
	TS  string
	Sig string
}

// FromFields percent-decodes each field of a structured input and validates
// that all four are non-empty. Decode failures fall back to the raw value
// for that field only.
func FromFields(f Fields) (*models.CheckInPayload, error) {
	payload, ok := buildPayload(map[string]string{
		"rid": f.RID,
		"mid": f.MID,
		"ts":  f.TS,
		"sig": f.Sig,
	})
	if !ok {
		return nil, errNotInExpectedFormat()
	}
	return payload, nil
}

// Parse decodes a scanned or typed string into the canonical 4-field
// check-in payload. Strategies run in a fixed order, returning on the first
// that yields all four non-empty fields:
//
//  1. URL with rid/mid/ts/sig query parameters
//  2. JSON object with the same four keys
//  3. slash-delimited positional form (rid/mid/ts/sig)
//  4. ad-hoc query string without a scheme
func Parse(raw string) (*models.CheckInPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errNotInExpectedFormat()
	}

	strategies := []func(string) (*models.CheckInPayload, bool){
		parseURLForm,
		parseJSONForm,
		parseSlashForm,
		parseQueryForm,
	}
	for _, strategy := range strategies {
		if payload, ok := strategy(raw); ok {
			return payload, nil
		}
	}
	return nil, errNotInExpectedFormat()
}

func parseURLForm(raw string) (*models.CheckInPayload, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.RawQuery == "" {
		return nil, false
	}
	return buildPayload(splitQueryPairs(u.RawQuery))
}

func parseJSONForm(raw string) (*models.CheckInPayload, bool) {
	var obj struct {
		RID string `json:"rid"`
		MID string `json:"mid"`
		TS  string `json:"ts"`
		Sig string `json:"sig"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, false
	}
	return buildPayload(map[string]string{
		"rid": obj.RID,
		"mid": obj.MID,
		"ts":  obj.TS,
		"sig": obj.Sig,
	})
}

func parseSlashForm(raw string) (*models.CheckInPayload, bool) {
	segments := strings.Split(raw, "/")
	if len(segments) < 4 {
		return nil, false
	}
	return buildPayload(map[string]string{
		"rid": segments[0],
		"mid": segments[1],
		"ts":  segments[2],
		"sig": segments[3],
	})
}

func parseQueryForm(raw string) (*models.CheckInPayload, bool) {
	return buildPayload(splitQueryPairs(raw))
}

// splitQueryPairs splits on "&" and each pair on the first "=". Values are
// kept raw so decodeField can record which decode path each one takes.
func splitQueryPairs(raw string) map[string]string {
	pairs := make(map[string]string)
	for _, pair := range strings.Split(raw, "&") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			continue
		}
		pairs[key] = value
	}
	return pairs
}

// buildPayload decodes the four fields out of raw values and succeeds only
// when every decoded field is non-empty.
func buildPayload(rawValues map[string]string) (*models.CheckInPayload, bool) {
	payload := &models.CheckInPayload{
		Outcomes: make(map[string]models.DecodeOutcome, 4),
	}

	for _, key := range []string{"rid", "mid", "ts", "sig"} {
		value, outcome := decodeField(rawValues[key])
		if value == "" {
			return nil, false
		}
		payload.Outcomes[key] = outcome
		switch key {
		case "rid":
			payload.RID = value
		case "mid":
			payload.MID = value
		case "ts":
			payload.TS = value
		case "sig":
			payload.Sig = value
		}
	}
	return payload, true
}

// decodeField percent-decodes one field. A decode error keeps the raw value
// rather than failing the whole parse: best-effort recovery beats rejecting
// an otherwise well-formed payload over an encoding quirk.
func decodeField(raw string) (string, models.DecodeOutcome) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw, models.FieldRaw
	}
	return decoded, models.FieldDecoded
}
