package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Theater grid limits
const (
	MaxTheaterRows    = 26
	MaxTheaterColumns = 20
)

// BookingStatus is the aggregate status of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Showtime represents a scheduled screening together with the theater grid it is sold against
type Showtime struct {
	ID          int64           `json:"id" db:"id"`
	MovieID     int64           `json:"movie_id" db:"movie_id"`
	MovieTitle  string          `json:"movie_title" db:"movie_title"`
	TheaterID   int64           `json:"theater_id" db:"theater_id"`
	TheaterName string          `json:"theater_name" db:"theater_name"`
	Rows        int             `json:"rows" db:"seat_rows"`
	Columns     int             `json:"columns" db:"seat_columns"`
	Price       decimal.Decimal `json:"price" db:"price"`
	StartsAt    time.Time       `json:"starts_at" db:"starts_at"`
}

// Contains reports whether the seat lies inside the theater grid
func (s *Showtime) Contains(seat SeatCoordinate) bool {
	return seat.Row >= 1 && seat.Row <= s.Rows && seat.Column >= 1 && seat.Column <= s.Columns
}

// Capacity is the number of seats in the theater grid
func (s *Showtime) Capacity() int {
	return s.Rows * s.Columns
}

// Booking represents one purchase of one or more seats for a showtime
type Booking struct {
	ID          int64            `json:"id" db:"id"`
	Reference   string           `json:"reference" db:"booking_reference"`
	UserID      int64            `json:"user_id" db:"user_id"`
	ShowtimeID  int64            `json:"showtime_id" db:"showtime_id"`
	Seats       []SeatCoordinate `json:"seats"` // Not from bookings table, filled from booking_seats
	TotalAmount decimal.Decimal  `json:"total_amount" db:"total_amount"`
	Status      BookingStatus    `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsConfirmed reports whether the booking currently holds its seats
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// SeatLabels returns the display labels of the booked seats
func (b *Booking) SeatLabels() []string {
	labels := make([]string, len(b.Seats))
	for i, seat := range b.Seats {
		labels[i] = seat.Label()
	}
	return labels
}

// BookingSeat represents one seat line item of a booking
type BookingSeat struct {
	ID         int64 `json:"id" db:"id"`
	BookingID  int64 `json:"booking_id" db:"booking_id"`
	ShowtimeID int64 `json:"showtime_id" db:"showtime_id"`
	Row        int   `json:"row" db:"seat_row"`
	Column     int   `json:"column" db:"seat_column"`
	Active     bool  `json:"active" db:"active"`
}
