// Package devserver is an in-process stand-in for the reservation backend.
// Transport tests and the -dev mode of reservation-watch run against it; it
// mirrors every endpoint and failure mode the client has to handle.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/umutugur/rezzy-core/internal/models"
	"github.com/umutugur/rezzy-core/internal/pricing"
)

// DefaultDepositRate is the fraction of the total charged as deposit.
const DefaultDepositRate = 0.3

// underattendedBelow is the fraction of the party size under which an
// arrival counts as under-attended.
const underattendedBelow = 0.8

// Options select the failure modes a scenario needs.
type Options struct {
	// LegacyReceiptOnly makes the primary receipt route answer 404 so the
	// client has to fall back to the legacy route.
	LegacyReceiptOnly bool
	// CancelConflict makes every status update answer 409 regardless of the
	// reservation's current status.
	CancelConflict bool
	// Now overrides the clock used for lateness; defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	opts   Options
	menus  pricing.PriceList
	router chi.Router

	mu           sync.Mutex
	reservations map[string]*models.Reservation
	lateByID     map[string]int
	idempotency  map[string]string
}

func New(menus pricing.PriceList, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:         opts,
		menus:        menus,
		reservations: make(map[string]*models.Reservation),
		lateByID:     make(map[string]int),
		idempotency:  make(map[string]string),
	}

	r := chi.NewRouter()
	r.Post("/reservations", s.createReservation)
	r.Get("/reservations/{reservationId}", s.getReservation)
	r.Put("/restaurants/reservations/{reservationId}/status", s.updateStatus)
	r.Post("/reservations/{reservationId}/receipt", s.uploadReceipt)
	r.Post("/restaurants/reservations/{reservationId}/receipt", s.uploadReceiptLegacy)
	r.Post("/reservations/checkin", s.checkInByQR)
	r.Post("/reservations/{reservationId}/checkin-manual", s.checkInManual)
	r.Patch("/reservations/{reservationId}/arrived-count", s.updateArrivedCount)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Seed inserts a reservation directly, bypassing the create flow.
func (s *Server) Seed(r models.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = &r
}

// SetStatus forces a server-side transition, e.g. pending→confirmed by the
// operator or confirmed→no_show by the timeout job.
func (s *Server) SetStatus(id string, status models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reservations[id]; ok {
		r.Status = status
	}
}

// Get returns a copy of one stored reservation, for test assertions.
func (s *Server) Get(id string) (models.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return models.Reservation{}, false
	}
	return *r, true
}

func (s *Server) createReservation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	when, err := time.Parse(time.RFC3339, req.DateTimeISO)
	if err != nil {
		http.Error(w, "Invalid dateTimeISO: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PartySize < 1 || len(req.Selections) != req.PartySize {
		http.Error(w, "Selections must cover the whole party", http.StatusBadRequest)
		return
	}
	for _, sel := range req.Selections {
		if sel.MenuID == "" {
			http.Error(w, fmt.Sprintf("Person %d has no menu selected", sel.Person), http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		if existingID, ok := s.idempotency[key]; ok {
			writeJSON(w, http.StatusCreated, s.reservations[existingID])
			return
		}
	}

	quote := pricing.Aggregate(req.Selections, s.menus, DefaultDepositRate)
	if !quote.IsValid {
		http.Error(w, "Cannot price reservation: "+quote.Reason, http.StatusBadRequest)
		return
	}

	reservation := &models.Reservation{
		ID:            uuid.NewString(),
		RestaurantID:  req.RestaurantID,
		UserID:        req.UserID,
		DateTimeUTC:   when.UTC(),
		PartySize:     req.PartySize,
		Selections:    req.Selections,
		TotalPrice:    quote.Total,
		DepositAmount: quote.Deposit,
		Status:        models.StatusPending,
	}
	s.reservations[reservation.ID] = reservation
	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		s.idempotency[key] = reservation.ID
	}

	writeJSON(w, http.StatusCreated, reservation)
}

func (s *Server) getReservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != models.StatusCancelled {
		http.Error(w, "Only cancellation can be requested", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}
	if s.opts.CancelConflict || reservation.Status != models.StatusPending {
		writeJSON(w, http.StatusConflict, map[string]string{"status": reservation.Status.String()})
		return
	}

	reservation.Status = models.StatusCancelled
	writeJSON(w, http.StatusOK, reservation)
}

func (s *Server) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	if s.opts.LegacyReceiptOnly {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	s.handleReceipt(w, r)
}

func (s *Server) uploadReceiptLegacy(w http.ResponseWriter, r *http.Request) {
	s.handleReceipt(w, r)
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	file, header, err := r.FormFile("receipt")
	if err != nil {
		http.Error(w, "Missing receipt file: "+err.Error(), http.StatusBadRequest)
		return
	}
	file.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}

	reservation.ReceiptURL = fmt.Sprintf("https://receipts.rezzy.local/%s/%s", id, header.Filename)
	writeJSON(w, http.StatusOK, models.ReceiptResponse{
		ReceiptURL: reservation.ReceiptURL,
		Status:     reservation.Status,
	})
}

func (s *Server) checkInByQR(w http.ResponseWriter, r *http.Request) {
	var req models.QRCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.RID == "" || req.MID == "" || req.TS == "" || req.Sig == "" {
		http.Error(w, "Incomplete check-in payload", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var reservation *models.Reservation
	for _, candidate := range s.reservations {
		if candidate.RestaurantID == req.RID && candidate.Status == models.StatusConfirmed {
			reservation = candidate
			break
		}
	}
	if reservation == nil {
		http.Error(w, "No confirmed reservation for this restaurant", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, s.arrive(reservation, req.ArrivedCount))
}

func (s *Server) checkInManual(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	var req models.ManualCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}
	if reservation.Status != models.StatusConfirmed {
		writeJSON(w, http.StatusConflict, map[string]string{"status": reservation.Status.String()})
		return
	}

	writeJSON(w, http.StatusOK, s.arrive(reservation, req.ArrivedCount))
}

func (s *Server) updateArrivedCount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reservationId")

	var req models.ArrivedCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ArrivedCount < 1 {
		http.Error(w, "arrivedCount must be at least 1", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		http.Error(w, "Reservation not found", http.StatusNotFound)
		return
	}
	if reservation.Status != models.StatusArrived {
		writeJSON(w, http.StatusConflict, map[string]string{"status": reservation.Status.String()})
		return
	}

	// Correction is idempotent: same count in, same result out. Lateness was
	// fixed at check-in time and never moves.
	count := req.ArrivedCount
	under := underattended(count, reservation.PartySize)
	reservation.ArrivedCount = &count
	reservation.Underattended = &under

	writeJSON(w, http.StatusOK, models.CheckInResult{
		OK:            true,
		ReservationID: reservation.ID,
		ArrivedCount:  count,
		LateMinutes:   s.lateByID[reservation.ID],
		Underattended: &under,
	})
}

// arrive performs the confirmed→arrived transition. Caller holds the lock.
func (s *Server) arrive(reservation *models.Reservation, arrivedCount *int) models.CheckInResult {
	count := reservation.PartySize
	if arrivedCount != nil {
		count = *arrivedCount
	}

	late := int(s.opts.Now().UTC().Sub(reservation.DateTimeUTC).Minutes())
	if late < 0 {
		late = 0
	}
	under := underattended(count, reservation.PartySize)

	reservation.Status = models.StatusArrived
	reservation.ArrivedCount = &count
	reservation.Underattended = &under
	s.lateByID[reservation.ID] = late

	return models.CheckInResult{
		OK:            true,
		ReservationID: reservation.ID,
		ArrivedCount:  count,
		LateMinutes:   late,
		Underattended: &under,
	}
}

func underattended(arrived, partySize int) bool {
	return float64(arrived) < underattendedBelow*float64(partySize)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
