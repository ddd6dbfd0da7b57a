package draft

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/umutugur/rezzy-core/internal/models"
)

// Draft is the in-memory state of a not-yet-submitted reservation. It is
// owned by a single authoring flow; it holds no locks. The selections slice
// always has exactly PartySize entries.
type Draft struct {
	id           string
	restaurantID string
	dateTimeISO  string
	partySize    int
	selections   []models.Selection
}

// New returns a fresh draft for a party of one with a single empty selection.
func New() *Draft {
	d := &Draft{id: uuid.NewString()}
	d.rebuild(1)
	return d
}

// ID identifies this authoring session; it is also used as the idempotency
// key when the draft is submitted.
func (d *Draft) ID() string { return d.id }

func (d *Draft) RestaurantID() string { return d.restaurantID }
func (d *Draft) DateTimeISO() string  { return d.dateTimeISO }
func (d *Draft) PartySize() int       { return d.partySize }

// Selections returns a copy; mutating it does not affect the draft.
func (d *Draft) Selections() []models.Selection {
	out := make([]models.Selection, len(d.selections))
	copy(out, d.selections)
	return out
}

// SetRestaurant sets the restaurant once. Changing restaurants means
// starting a new draft.
func (d *Draft) SetRestaurant(id string) error {
	if id == "" {
		return &models.ValidationError{Field: "restaurantId", Reason: "must not be empty"}
	}
	if d.restaurantID != "" && d.restaurantID != id {
		return &models.ValidationError{Field: "restaurantId", Reason: "already set; reset the draft to change restaurants"}
	}
	d.restaurantID = id
	return nil
}

// SetDateTime accepts an RFC 3339 UTC instant.
func (d *Draft) SetDateTime(iso string) error {
	if _, err := time.Parse(time.RFC3339, iso); err != nil {
		return &models.ValidationError{Field: "dateTimeISO", Reason: fmt.Sprintf("not an RFC 3339 instant: %v", err)}
	}
	d.dateTimeISO = iso
	return nil
}

// SetPartySize resizes the party. Any change discards and rebuilds the
// selection list at the new length with empty menu ids: a size change
// invalidates prior per-person choices. n < 1 leaves state unchanged.
func (d *Draft) SetPartySize(n int) error {
	if n < 1 {
		return &models.ValidationError{Field: "partySize", Reason: "must be a positive integer"}
	}
	d.rebuild(n)
	return nil
}

// SetSelection upserts the menu choice for one person. A stale person index
// left over from before a size change succeeds silently with no effect;
// callers re-derive indices from the current party size.
func (d *Draft) SetSelection(person int, menuID string) error {
	if person < 1 {
		return &models.ValidationError{Field: "person", Reason: "must be at least 1"}
	}
	if person > d.partySize {
		return nil
	}
	d.selections[person-1].MenuID = menuID
	return nil
}

// IsComplete reports whether every person has a non-empty menu choice.
// Submission is blocked until this holds; the server re-validates anyway.
func (d *Draft) IsComplete() bool {
	if d.restaurantID == "" || d.dateTimeISO == "" {
		return false
	}
	for _, sel := range d.selections {
		if sel.MenuID == "" {
			return false
		}
	}
	return true
}

// Validate returns the first reason the draft cannot be submitted, nil if it
// is submittable.
func (d *Draft) Validate() error {
	if d.restaurantID == "" {
		return &models.ValidationError{Field: "restaurantId", Reason: "not set"}
	}
	if d.dateTimeISO == "" {
		return &models.ValidationError{Field: "dateTimeISO", Reason: "not set"}
	}
	for _, sel := range d.selections {
		if sel.MenuID == "" {
			return &models.ValidationError{Field: "selections", Reason: fmt.Sprintf("person %d has no menu selected", sel.Person)}
		}
	}
	return nil
}

// Reset clears all fields back to a fresh single-person draft under a new
// id. Called on screen re-entry so a stale draft for another restaurant is
// never resumed.
func (d *Draft) Reset() {
	d.id = uuid.NewString()
	d.restaurantID = ""
	d.dateTimeISO = ""
	d.rebuild(1)
}

func (d *Draft) rebuild(n int) {
	d.partySize = n
	d.selections = make([]models.Selection, n)
	for i := range d.selections {
		d.selections[i] = models.Selection{Person: i + 1}
	}
}
