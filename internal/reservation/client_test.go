package reservation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umutugur/rezzy-core/internal/checkin"
	"github.com/umutugur/rezzy-core/internal/devserver"
	"github.com/umutugur/rezzy-core/internal/draft"
	"github.com/umutugur/rezzy-core/internal/logger"
	"github.com/umutugur/rezzy-core/internal/models"
	"github.com/umutugur/rezzy-core/internal/pricing"
	"github.com/umutugur/rezzy-core/internal/reservation"
)

func testMenus() pricing.PriceList {
	return pricing.PriceList{
		"fix-a": {ID: "fix-a", Name: "Fixed Menu A", Price: 250},
		"fix-b": {ID: "fix-b", Name: "Fixed Menu B", Price: 400},
	}
}

func newBackend(t *testing.T, opts devserver.Options) (*devserver.Server, *reservation.Client) {
	t.Helper()
	backend := devserver.New(testMenus(), opts)
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)
	client := reservation.NewClient(ts.URL, "", ts.Client(), logger.NewLogger())
	return backend, client
}

func completeDraft(t *testing.T) *draft.Draft {
	t.Helper()
	d := draft.New()
	require.NoError(t, d.SetRestaurant("R1"))
	require.NoError(t, d.SetDateTime("2025-09-01T19:00:00Z"))
	require.NoError(t, d.SetPartySize(2))
	require.NoError(t, d.SetSelection(1, "fix-a"))
	require.NoError(t, d.SetSelection(2, "fix-a"))
	return d
}

func TestCreateRejectsIncompleteDraftBeforeNetwork(t *testing.T) {
	client := reservation.NewClient("http://127.0.0.1:1", "", nil, logger.NewLogger())

	d := draft.New()
	require.NoError(t, d.SetRestaurant("R1"))

	_, err := client.Create(context.Background(), d)

	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestCreateReturnsServerPricedReservation(t *testing.T) {
	_, client := newBackend(t, devserver.Options{})

	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "R1", created.RestaurantID)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, 2, created.PartySize)
	assert.Equal(t, 500.0, created.TotalPrice)
	assert.Equal(t, 150.0, created.DepositAmount)
}

func TestCreateIsIdempotentPerDraft(t *testing.T) {
	_, client := newBackend(t, devserver.Options{})
	d := completeDraft(t)

	first, err := client.Create(context.Background(), d)
	require.NoError(t, err)
	second, err := client.Create(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestCreateStampsUserIDFromToken(t *testing.T) {
	backend := devserver.New(testMenus(), devserver.Options{})
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	client := reservation.NewClient(ts.URL, token, ts.Client(), logger.NewLogger())
	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	assert.Equal(t, "user-42", created.UserID)
}

func TestFetchNormalizesLegacyStatusSpelling(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"res-1","restaurantId":"R1","status":"canceled"}`))
	}))
	t.Cleanup(ts.Close)

	client := reservation.NewClient(ts.URL, "", ts.Client(), logger.NewLogger())
	fetched, err := client.Fetch(context.Background(), "res-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, fetched.Status)
}

func TestCancelPendingReservation(t *testing.T) {
	_, client := newBackend(t, devserver.Options{})
	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	cancelled, err := client.Cancel(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, cancelled.Status)
}

func TestCancelAdvancedReservationIsConflict(t *testing.T) {
	backend, client := newBackend(t, devserver.Options{})
	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	// The operator confirmed and the party arrived between render and tap.
	backend.SetStatus(created.ID, models.StatusArrived)

	_, err = client.Cancel(context.Background(), created.ID)

	var conflict *reservation.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, created.ID, conflict.ReservationID)
	assert.Equal(t, models.StatusArrived, conflict.Status)

	// The server copy was not overwritten.
	current, ok := backend.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusArrived, current.Status)
}

func TestUploadReceiptPrimaryRoute(t *testing.T) {
	_, client := newBackend(t, devserver.Options{})
	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	receipt, err := client.UploadReceipt(context.Background(), created.ID, "deposit.png", strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)

	assert.Contains(t, receipt.ReceiptURL, created.ID)
	assert.Contains(t, receipt.ReceiptURL, "deposit.png")
}

func TestUploadReceiptFallsBackToLegacyRouteOn404(t *testing.T) {
	_, client := newBackend(t, devserver.Options{LegacyReceiptOnly: true})
	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	receipt, err := client.UploadReceipt(context.Background(), created.ID, "deposit.png", strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)

	assert.Contains(t, receipt.ReceiptURL, created.ID)
}

func TestUploadReceiptFailsAfterSingleFallback(t *testing.T) {
	_, client := newBackend(t, devserver.Options{})

	_, err := client.UploadReceipt(context.Background(), "no-such-id", "deposit.png", strings.NewReader("x"))

	var transportErr *reservation.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
}

func TestTransportErrorTruncatesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	t.Cleanup(ts.Close)

	client := reservation.NewClient(ts.URL, "", ts.Client(), logger.NewLogger())
	_, err := client.Fetch(context.Background(), "res-1")

	var transportErr *reservation.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	assert.LessOrEqual(t, len(transportErr.Body), 512)
}

func TestEndToEndReserveThenCheckIn(t *testing.T) {
	now := time.Date(2025, 9, 1, 19, 10, 0, 0, time.UTC)
	backend, client := newBackend(t, devserver.Options{Now: func() time.Time { return now }})
	log := logger.NewLogger()

	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)
	assert.Equal(t, 500.0, created.TotalPrice)

	backend.SetStatus(created.ID, models.StatusConfirmed)

	payload, err := checkin.Parse("rid=R1&mid=T4&ts=1725216000&sig=abc123")
	require.NoError(t, err)

	reconciler := checkin.NewReconciler(client, log)
	result, err := reconciler.ByQR(context.Background(), payload, nil)
	require.NoError(t, err)

	// No explicit arrived count: the server defaulted to the party size.
	assert.Equal(t, 2, result.ArrivedCount)
	assert.Equal(t, 10, result.LateMinutes)
	require.NotNil(t, result.Underattended)
	assert.False(t, *result.Underattended)

	fetched, err := client.Fetch(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArrived, fetched.Status)

	// Correcting the count is idempotent and re-derives under-attendance
	// without touching lateness.
	first, err := reconciler.UpdateArrivedCount(context.Background(), created.ID, 1)
	require.NoError(t, err)
	second, err := reconciler.UpdateArrivedCount(context.Background(), created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 10, first.LateMinutes)
	require.NotNil(t, first.Underattended)
	assert.True(t, *first.Underattended)
}

func TestManualCheckInOnPendingReservationIsRejected(t *testing.T) {
	_, client := newBackend(t, devserver.Options{})
	created, err := client.Create(context.Background(), completeDraft(t))
	require.NoError(t, err)

	two := 2
	_, err = client.CheckInManual(context.Background(), created.ID, &two)

	var transportErr *reservation.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusConflict, transportErr.StatusCode)
}

func TestUserIDFromToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-7"}).
		SignedString([]byte("k"))
	require.NoError(t, err)

	sub, err := reservation.UserIDFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", sub)

	_, err = reservation.UserIDFromToken("")
	assert.Error(t, err)
	_, err = reservation.UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}
