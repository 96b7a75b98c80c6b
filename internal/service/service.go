package service

import (
	"cinematime/internal/booking"
	"cinematime/internal/inventory"
	"cinematime/internal/messaging"
	"cinematime/internal/metrics"
)

type Services struct {
	Showtimes *ShowtimeService
	Bookings  *BookingService
}

func NewServices(engine *booking.Engine, view *inventory.View, publisher messaging.Publisher, m *metrics.Metrics) *Services {
	return &Services{
		Showtimes: NewShowtimeService(view),
		Bookings:  NewBookingService(engine, publisher, m),
	}
}
