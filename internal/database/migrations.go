package database

import (
	"fmt"
	"log/slog"
)

// Constraint names the booking store maps to domain errors
const (
	ActiveSeatConstraint       = "booking_seats_active_seat_key"
	BookingReferenceConstraint = "bookings_reference_key"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	for i, migration := range Migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// Migrations are idempotent and run in order
var Migrations = []string{
	createTheatersTable,
	createMoviesTable,
	createShowtimesTable,
	createBookingsTable,
	createBookingSeatsTable,
	createActiveSeatIndex,
	createBookingsUserIndex,
	createShowtimesStartIndex,
	createBookingEventsTable,
}

const createTheatersTable = `
CREATE TABLE IF NOT EXISTS theaters (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    seat_rows INTEGER NOT NULL,
    seat_columns INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (seat_rows BETWEEN 1 AND 26),
    CHECK (seat_columns BETWEEN 1 AND 20)
);`

const createMoviesTable = `
CREATE TABLE IF NOT EXISTS movies (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    duration_minutes INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createShowtimesTable = `
CREATE TABLE IF NOT EXISTS showtimes (
    id SERIAL PRIMARY KEY,
    movie_id INTEGER NOT NULL REFERENCES movies(id),
    theater_id INTEGER NOT NULL REFERENCES theaters(id),
    starts_at TIMESTAMPTZ NOT NULL,
    price NUMERIC(10,2) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (price > 0)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id BIGSERIAL PRIMARY KEY,
    booking_reference VARCHAR(32) NOT NULL,
    user_id BIGINT NOT NULL,
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id),
    total_amount NUMERIC(10,2) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    cancelled_at TIMESTAMPTZ,

    CONSTRAINT bookings_reference_key UNIQUE (booking_reference),
    CHECK (status IN ('confirmed', 'cancelled')),
    CHECK ((status = 'cancelled') = (cancelled_at IS NOT NULL))
);`

const createBookingSeatsTable = `
CREATE TABLE IF NOT EXISTS booking_seats (
    id BIGSERIAL PRIMARY KEY,
    booking_id BIGINT NOT NULL REFERENCES bookings(id),
    showtime_id INTEGER NOT NULL REFERENCES showtimes(id),
    seat_row INTEGER NOT NULL,
    seat_column INTEGER NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,

    UNIQUE (booking_id, seat_row, seat_column),
    CHECK (seat_row >= 1 AND seat_column >= 1)
);`

// Only one active line item may exist per seat of a showtime
const createActiveSeatIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS booking_seats_active_seat_key
ON booking_seats (showtime_id, seat_row, seat_column) WHERE active;`

const createBookingsUserIndex = `
CREATE INDEX IF NOT EXISTS bookings_user_created_idx
ON bookings (user_id, created_at DESC);`

const createShowtimesStartIndex = `
CREATE INDEX IF NOT EXISTS showtimes_starts_at_idx
ON showtimes (starts_at);`

// Journal of booking events written by the consumer service
const createBookingEventsTable = `
CREATE TABLE IF NOT EXISTS booking_events (
    id BIGSERIAL PRIMARY KEY,
    booking_id BIGINT NOT NULL,
    event_type VARCHAR(50) NOT NULL,
    booking_reference VARCHAR(32) NOT NULL,
    user_id BIGINT NOT NULL,
    showtime_id INTEGER NOT NULL,
    seats TEXT[] NOT NULL,
    total_amount NUMERIC(10,2),
    occurred_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE (booking_id, event_type)
);`
