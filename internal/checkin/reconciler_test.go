package checkin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/rezzy-core/internal/logger"
	"github.com/umutugur/rezzy-core/internal/models"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) CheckInByQR(ctx context.Context, req models.QRCheckInRequest) (*models.CheckInResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckInResult), args.Error(1)
}

func (m *MockAPI) CheckInManual(ctx context.Context, reservationID string, arrivedCount *int) (*models.CheckInResult, error) {
	args := m.Called(reservationID, arrivedCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckInResult), args.Error(1)
}

func (m *MockAPI) UpdateArrivedCount(ctx context.Context, reservationID string, arrivedCount int) (*models.CheckInResult, error) {
	args := m.Called(reservationID, arrivedCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckInResult), args.Error(1)
}

func validPayload() *models.CheckInPayload {
	return &models.CheckInPayload{RID: "R1", MID: "T4", TS: "1725216000", Sig: "abc123"}
}

func intPtr(n int) *int { return &n }

func TestByQRPassesTupleThrough(t *testing.T) {
	api := new(MockAPI)
	under := false
	api.On("CheckInByQR", models.QRCheckInRequest{
		RID: "R1", MID: "T4", TS: "1725216000", Sig: "abc123",
	}).Return(&models.CheckInResult{OK: true, ArrivedCount: 2, LateMinutes: 7, Underattended: &under}, nil)

	r := NewReconciler(api, logger.NewLogger())
	result, err := r.ByQR(context.Background(), validPayload(), nil)

	require.NoError(t, err)
	assert.True(t, result.OK)
	// Lateness and the under-attendance verdict are the server's; they come
	// back untouched.
	assert.Equal(t, 7, result.LateMinutes)
	assert.Equal(t, 2, result.ArrivedCount)
	api.AssertExpectations(t)
}

func TestByQRWithExplicitArrivedCount(t *testing.T) {
	api := new(MockAPI)
	api.On("CheckInByQR", mock.MatchedBy(func(req models.QRCheckInRequest) bool {
		return req.ArrivedCount != nil && *req.ArrivedCount == 3
	})).Return(&models.CheckInResult{OK: true, ArrivedCount: 3}, nil)

	r := NewReconciler(api, logger.NewLogger())
	result, err := r.ByQR(context.Background(), validPayload(), intPtr(3))

	require.NoError(t, err)
	assert.Equal(t, 3, result.ArrivedCount)
}

func TestByQRRejectsIncompletePayloadBeforeNetwork(t *testing.T) {
	api := new(MockAPI)
	r := NewReconciler(api, logger.NewLogger())

	broken := validPayload()
	broken.Sig = ""
	_, err := r.ByQR(context.Background(), broken, nil)

	var payloadErr *InvalidPayloadError
	assert.ErrorAs(t, err, &payloadErr)
	_, err = r.ByQR(context.Background(), nil, nil)
	assert.ErrorAs(t, err, &payloadErr)
	api.AssertNotCalled(t, "CheckInByQR", mock.Anything)
}

func TestByQRRejectsNonPositiveArrivedCount(t *testing.T) {
	api := new(MockAPI)
	r := NewReconciler(api, logger.NewLogger())

	_, err := r.ByQR(context.Background(), validPayload(), intPtr(0))

	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
	api.AssertNotCalled(t, "CheckInByQR", mock.Anything)
}

func TestByManualRequiresArrivedCount(t *testing.T) {
	api := new(MockAPI)
	r := NewReconciler(api, logger.NewLogger())

	_, err := r.ByManual(context.Background(), "res-1", 0)
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = r.ByManual(context.Background(), "", 2)
	assert.ErrorAs(t, err, &vErr)
	api.AssertNotCalled(t, "CheckInManual", mock.Anything, mock.Anything)
}

func TestByManualSendsCount(t *testing.T) {
	api := new(MockAPI)
	api.On("CheckInManual", "res-1", intPtr(3)).
		Return(&models.CheckInResult{OK: true, ArrivedCount: 3, LateMinutes: 12}, nil)

	r := NewReconciler(api, logger.NewLogger())
	result, err := r.ByManual(context.Background(), "res-1", 3)

	require.NoError(t, err)
	assert.Equal(t, 3, result.ArrivedCount)
	api.AssertExpectations(t)
}

func TestUpdateArrivedCountIsIdempotent(t *testing.T) {
	api := new(MockAPI)
	under := true
	expected := &models.CheckInResult{OK: true, ArrivedCount: 3, LateMinutes: 12, Underattended: &under}
	api.On("UpdateArrivedCount", "res-1", 3).Return(expected, nil).Twice()

	r := NewReconciler(api, logger.NewLogger())
	first, err := r.UpdateArrivedCount(context.Background(), "res-1", 3)
	require.NoError(t, err)
	second, err := r.UpdateArrivedCount(context.Background(), "res-1", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	api.AssertExpectations(t)
}

func TestReconcilerPropagatesTransportErrors(t *testing.T) {
	api := new(MockAPI)
	api.On("CheckInByQR", mock.Anything).Return(nil, errors.New("service unavailable"))

	r := NewReconciler(api, logger.NewLogger())
	_, err := r.ByQR(context.Background(), validPayload(), nil)

	assert.Error(t, err)
}
