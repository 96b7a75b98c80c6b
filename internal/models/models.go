package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBookingRequest - body of POST /api/bookings.
// Seats may be sent as typed coordinates or as labels ("A5", "1-5").
type CreateBookingRequest struct {
	ShowtimeID int64            `json:"showtime_id" binding:"required"`
	Seats      []SeatCoordinate `json:"seats,omitempty"`
	SeatLabels []string         `json:"seat_labels,omitempty"`
}

// Coordinates merges typed seats and parsed labels into one list
func (r *CreateBookingRequest) Coordinates() ([]SeatCoordinate, error) {
	parsed, err := ParseSeats(r.SeatLabels)
	if err != nil {
		return nil, err
	}
	seats := make([]SeatCoordinate, 0, len(r.Seats)+len(parsed))
	seats = append(seats, r.Seats...)
	seats = append(seats, parsed...)
	return seats, nil
}

// BookingResponse - booking as returned to API callers
type BookingResponse struct {
	ID          int64            `json:"id"`
	Reference   string           `json:"reference"`
	UserID      int64            `json:"user_id"`
	ShowtimeID  int64            `json:"showtime_id"`
	Seats       []SeatCoordinate `json:"seats"`
	SeatLabels  []string         `json:"seat_labels"`
	TotalAmount string           `json:"total_amount"`
	Status      BookingStatus    `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
}

// NewBookingResponse converts a booking into its API shape
func NewBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		Reference:   b.Reference,
		UserID:      b.UserID,
		ShowtimeID:  b.ShowtimeID,
		Seats:       b.Seats,
		SeatLabels:  b.SeatLabels(),
		TotalAmount: b.TotalAmount.StringFixed(2),
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
}

// ListBookingsResponse - list of the caller's bookings
type ListBookingsResponse []BookingResponse

// OccupiedSeatsResponse - body of GET /api/showtimes/:id/occupied
type OccupiedSeatsResponse struct {
	ShowtimeID int64            `json:"showtime_id"`
	Seats      []SeatCoordinate `json:"seats"`
	SeatLabels []string         `json:"seat_labels"`
}

// ErrorResponse - body returned for every rejected request
type ErrorResponse struct {
	Error  string   `json:"error"`
	Reason string   `json:"reason,omitempty"`
	Seats  []string `json:"seats,omitempty"`
}

// TotalFor returns price x seat count
func TotalFor(price decimal.Decimal, seats int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(seats)))
}
