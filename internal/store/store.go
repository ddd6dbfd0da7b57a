package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/umutugur/rezzy-core/internal/models"
)

// Store caches the last fetched copy of each reservation on device so the
// app can render state while offline. The cache is disposable: everything
// in it can be refetched, so Init simply rebuilds the schema.
type Store struct {
	Bun *bun.DB
}

// Open creates a bun handle over a sqlite database at the given path
// ("file::memory:?cache=shared" for tests).
func Open(path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot db: %w", err)
	}
	return &Store{Bun: bun.NewDB(sqldb, sqlitedialect.New())}, nil
}

// Init (re)creates the snapshot table.
func (s *Store) Init(ctx context.Context) error {
	return s.Bun.ResetModel(ctx, (*reservationRow)(nil))
}

func (s *Store) Close() error {
	return s.Bun.Close()
}

type reservationRow struct {
	bun.BaseModel `bun:"table:reservation_snapshots"`

	ID             string    `bun:"reservation_id,pk"`
	RestaurantID   string    `bun:"restaurant_id"`
	UserID         string    `bun:"user_id"`
	DateTimeUTC    time.Time `bun:"date_time_utc"`
	PartySize      int       `bun:"party_size"`
	SelectionsJSON string    `bun:"selections_json"`
	TotalPrice     float64   `bun:"total_price"`
	DepositAmount  float64   `bun:"deposit_amount"`
	ReceiptURL     string    `bun:"receipt_url"`
	Status         string    `bun:"status"`
	ArrivedCount   *int      `bun:"arrived_count"`
	Underattended  *bool     `bun:"underattended"`
	SyncedAt       time.Time `bun:"synced_at"`
}

// Put upserts one reservation snapshot keyed by reservation id.
func (s *Store) Put(ctx context.Context, r *models.Reservation) error {
	row, err := toRow(r)
	if err != nil {
		return err
	}
	_, err = s.Bun.NewInsert().
		Model(row).
		On("CONFLICT (reservation_id) DO UPDATE").
		Set("restaurant_id = EXCLUDED.restaurant_id").
		Set("user_id = EXCLUDED.user_id").
		Set("date_time_utc = EXCLUDED.date_time_utc").
		Set("party_size = EXCLUDED.party_size").
		Set("selections_json = EXCLUDED.selections_json").
		Set("total_price = EXCLUDED.total_price").
		Set("deposit_amount = EXCLUDED.deposit_amount").
		Set("receipt_url = EXCLUDED.receipt_url").
		Set("status = EXCLUDED.status").
		Set("arrived_count = EXCLUDED.arrived_count").
		Set("underattended = EXCLUDED.underattended").
		Set("synced_at = EXCLUDED.synced_at").
		Exec(ctx)
	return err
}

// Get returns one cached reservation by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Reservation, error) {
	var row reservationRow
	err := s.Bun.NewSelect().
		Model(&row).
		Where("reservation_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return toModel(&row)
}

// ListByUser returns all cached reservations of one user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*models.Reservation, error) {
	var rows []reservationRow
	err := s.Bun.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("date_time_utc DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Reservation, 0, len(rows))
	for i := range rows {
		r, err := toModel(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Delete drops one cached reservation.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.Bun.NewDelete().
		Model((*reservationRow)(nil)).
		Where("reservation_id = ?", id).
		Exec(ctx)
	return err
}

func toRow(r *models.Reservation) (*reservationRow, error) {
	selections, err := json.Marshal(r.Selections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selections: %w", err)
	}
	return &reservationRow{
		ID:             r.ID,
		RestaurantID:   r.RestaurantID,
		UserID:         r.UserID,
		DateTimeUTC:    r.DateTimeUTC,
		PartySize:      r.PartySize,
		SelectionsJSON: string(selections),
		TotalPrice:     r.TotalPrice,
		DepositAmount:  r.DepositAmount,
		ReceiptURL:     r.ReceiptURL,
		Status:         r.Status.String(),
		ArrivedCount:   r.ArrivedCount,
		Underattended:  r.Underattended,
		SyncedAt:       time.Now().UTC(),
	}, nil
}

func toModel(row *reservationRow) (*models.Reservation, error) {
	status, err := models.ParseStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", row.ID, err)
	}

	var selections []models.Selection
	if row.SelectionsJSON != "" {
		if err := json.Unmarshal([]byte(row.SelectionsJSON), &selections); err != nil {
			return nil, fmt.Errorf("corrupt snapshot %s: %w", row.ID, err)
		}
	}

	return &models.Reservation{
		ID:            row.ID,
		RestaurantID:  row.RestaurantID,
		UserID:        row.UserID,
		DateTimeUTC:   row.DateTimeUTC,
		PartySize:     row.PartySize,
		Selections:    selections,
		TotalPrice:    row.TotalPrice,
		DepositAmount: row.DepositAmount,
		ReceiptURL:    row.ReceiptURL,
		Status:        status,
		ArrivedCount:  row.ArrivedCount,
		Underattended: row.Underattended,
	}, nil
}
