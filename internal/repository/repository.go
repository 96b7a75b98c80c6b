package repository

import (
	"cinematime/internal/database"
)

type Repositories struct {
	Showtimes     *ShowtimeRepository
	Bookings      *BookingRepository
	BookingEvents *BookingEventRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Showtimes:     NewShowtimeRepository(db),
		Bookings:      NewBookingRepository(db),
		BookingEvents: NewBookingEventRepository(db),
	}
}
