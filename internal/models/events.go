package models

import "time"

// NATS Event Types
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking has been committed
type BookingConfirmedEvent struct {
	BookingID   int64     `json:"booking_id"`
	Reference   string    `json:"reference"`
	UserID      int64     `json:"user_id"`
	ShowtimeID  int64     `json:"showtime_id"`
	Seats       []string  `json:"seats"`
	TotalAmount string    `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published after a booking has been cancelled
type BookingCancelledEvent struct {
	BookingID  int64     `json:"booking_id"`
	Reference  string    `json:"reference"`
	UserID     int64     `json:"user_id"`
	ShowtimeID int64     `json:"showtime_id"`
	Seats      []string  `json:"seats"`
	Timestamp  time.Time `json:"timestamp"`
}
