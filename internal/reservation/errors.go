package reservation

import (
	"fmt"

	"github.com/umutugur/rezzy-core/internal/models"
)

// maxErrorBodyBytes caps how much of a failed response body is kept for
// diagnostics.
const maxErrorBodyBytes = 512

// TransportError is any non-2xx response other than the single documented
// 404 receipt fallback. Body is truncated to maxErrorBodyBytes.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reservation service returned status %d: %s", e.StatusCode, e.Body)
}

// ConflictError means a cancel was attempted on a reservation whose
// server-side status already advanced past pending. The observed status is
// included when the server reported one.
type ConflictError struct {
	ReservationID string
	Status        models.Status
}

func (e *ConflictError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("reservation %s can no longer be cancelled (status %s)", e.ReservationID, e.Status)
	}
	return fmt.Sprintf("reservation %s can no longer be cancelled", e.ReservationID)
}
