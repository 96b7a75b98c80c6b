package repository

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"cinematime/internal/database"
)

// BookingEvent is one journal entry of the booking_events table
type BookingEvent struct {
	BookingID   int64
	EventType   string
	Reference   string
	UserID      int64
	ShowtimeID  int64
	Seats       []string
	TotalAmount *decimal.Decimal
	OccurredAt  time.Time
}

// BookingEventRepository journals booking events delivered over NATS.
// Redelivered events are ignored.
type BookingEventRepository struct {
	db *database.DB
}

func NewBookingEventRepository(db *database.DB) *BookingEventRepository {
	return &BookingEventRepository{db: db}
}

// Record stores e and reports whether it was new
func (r *BookingEventRepository) Record(ctx context.Context, e BookingEvent) (bool, error) {
	query := `
		INSERT INTO booking_events (booking_id, event_type, booking_reference, user_id, showtime_id, seats, total_amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (booking_id, event_type) DO NOTHING`

	var total interface{}
	if e.TotalAmount != nil {
		total = *e.TotalAmount
	}

	res, err := r.db.ExecContext(ctx, query,
		e.BookingID,
		e.EventType,
		e.Reference,
		e.UserID,
		e.ShowtimeID,
		pq.Array(e.Seats),
		total,
		e.OccurredAt,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
