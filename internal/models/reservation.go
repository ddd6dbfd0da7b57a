package models

import "time"

// Selection is one person's chosen menu within a reservation. Person indices
// are 1-based and always cover 1..PartySize exactly.
type Selection struct {
	Person int      `json:"person"`
	MenuID string   `json:"menuId"`
	Price  *float64 `json:"price,omitempty"`
}

// Reservation is the client's read copy of a server-owned reservation.
// Status is server-authoritative; the client never fabricates one except as
// an optimistic echo that the next successful fetch supersedes.
type Reservation struct {
	ID            string      `json:"id"`
	RestaurantID  string      `json:"restaurantId"`
	UserID        string      `json:"userId"`
	DateTimeUTC   time.Time   `json:"dateTimeUTC"`
	PartySize     int         `json:"partySize"`
	Selections    []Selection `json:"selections"`
	TotalPrice    float64     `json:"totalPrice"`
	DepositAmount float64     `json:"depositAmount"`
	ReceiptURL    string      `json:"receiptUrl,omitempty"`
	Status        Status      `json:"status"`
	ArrivedCount  *int        `json:"arrivedCount,omitempty"`
	Underattended *bool       `json:"underattended,omitempty"`
}

// CreateReservationRequest is the body of POST /reservations.
type CreateReservationRequest struct {
	RestaurantID string      `json:"restaurantId"`
	DateTimeISO  string      `json:"dateTimeISO"`
	PartySize    int         `json:"partySize"`
	UserID       string      `json:"userId,omitempty"`
	Selections   []Selection `json:"selections"`
}

// StatusUpdateRequest is the body of PUT /restaurants/reservations/{id}/status.
// Cancellation is the only transition this client issues.
type StatusUpdateRequest struct {
	Status Status `json:"status"`
}

// ReceiptResponse is returned by the receipt upload endpoints.
type ReceiptResponse struct {
	ReceiptURL string `json:"receiptUrl"`
	Status     Status `json:"status"`
}
