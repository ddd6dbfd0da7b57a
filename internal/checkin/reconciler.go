package checkin

import (
	"context"
	"fmt"

	"github.com/umutugur/rezzy-core/internal/logger"
	"github.com/umutugur/rezzy-core/internal/models"
)

// API is the slice of the reservation service the reconciler needs.
type API interface {
	CheckInByQR(ctx context.Context, req models.QRCheckInRequest) (*models.CheckInResult, error)
	CheckInManual(ctx context.Context, reservationID string, arrivedCount *int) (*models.CheckInResult, error)
	UpdateArrivedCount(ctx context.Context, reservationID string, arrivedCount int) (*models.CheckInResult, error)
}

// Reconciler turns a parsed payload or a manual front-desk entry into an
// arrival outcome. Lateness and under-attendance are computed server-side
// and carried through untouched.
type Reconciler struct {
	api    API
	logger *logger.Logger
}

func NewReconciler(api API, log *logger.Logger) *Reconciler {
	return &Reconciler{api: api, logger: log}
}

// ByQR checks in with a scanned payload. When arrivedCount is nil the
// server defaults it to the reservation's original party size.
func (r *Reconciler) ByQR(ctx context.Context, payload *models.CheckInPayload, arrivedCount *int) (*models.CheckInResult, error) {
	if payload == nil || payload.RID == "" || payload.MID == "" || payload.TS == "" || payload.Sig == "" {
		return nil, errNotInExpectedFormat()
	}
	if arrivedCount != nil && *arrivedCount < 1 {
		return nil, &models.ValidationError{Field: "arrivedCount", Reason: "must be at least 1"}
	}

	result, err := r.api.CheckInByQR(ctx, models.QRCheckInRequest{
		RID:          payload.RID,
		MID:          payload.MID,
		TS:           payload.TS,
		Sig:          payload.Sig,
		ArrivedCount: arrivedCount,
	})
	if err != nil {
		r.logger.LogCheckIn("QR", fmt.Sprintf("check-in failed for restaurant %s: %v", payload.RID, err))
		return nil, err
	}

	r.logger.LogCheckIn("QR", fmt.Sprintf("restaurant %s arrived=%d late=%dm", payload.RID, result.ArrivedCount, result.LateMinutes))
	return result, nil
}

// ByManual checks in by restaurant-scoped reservation id. The wire contract
// keeps the arrived count optional; this entry point requires it because the
// front-desk flow always supplies one.
func (r *Reconciler) ByManual(ctx context.Context, reservationID string, arrivedCount int) (*models.CheckInResult, error) {
	if reservationID == "" {
		return nil, &models.ValidationError{Field: "reservationId", Reason: "must not be empty"}
	}
	if arrivedCount < 1 {
		return nil, &models.ValidationError{Field: "arrivedCount", Reason: "must be at least 1"}
	}

	result, err := r.api.CheckInManual(ctx, reservationID, &arrivedCount)
	if err != nil {
		r.logger.LogCheckIn("MANUAL", fmt.Sprintf("check-in failed for %s: %v", reservationID, err))
		return nil, err
	}

	r.logger.LogCheckIn("MANUAL", fmt.Sprintf("%s arrived=%d late=%dm", reservationID, result.ArrivedCount, result.LateMinutes))
	return result, nil
}

// UpdateArrivedCount corrects the arrived count after check-in. Idempotent:
// the same count submitted twice yields the same result. The server
// re-derives the under-attendance flag but never lateness.
func (r *Reconciler) UpdateArrivedCount(ctx context.Context, reservationID string, arrivedCount int) (*models.CheckInResult, error) {
	if reservationID == "" {
		return nil, &models.ValidationError{Field: "reservationId", Reason: "must not be empty"}
	}
	if arrivedCount < 1 {
		return nil, &models.ValidationError{Field: "arrivedCount", Reason: "must be at least 1"}
	}
	return r.api.UpdateArrivedCount(ctx, reservationID, arrivedCount)
}
