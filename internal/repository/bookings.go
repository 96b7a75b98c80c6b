package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cinematime/internal/database"
	apperrors "cinematime/internal/errors"
	"cinematime/internal/models"
)

const uniqueViolation = "23505"

// BookingRepository is the Postgres booking store. Seat exclusivity is
// enforced by the booking_seats_active_seat_key partial unique index.
type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, booking_reference, user_id, showtime_id, total_amount, status, created_at, cancelled_at`

const occupiedSeatsQuery = `
	SELECT bs.seat_row, bs.seat_column
	FROM booking_seats bs
	JOIN bookings b ON b.id = bs.booking_id
	WHERE bs.showtime_id = $1 AND b.status = 'confirmed'`

const occupiedAmongQuery = occupiedSeatsQuery + `
	  AND (bs.seat_row, bs.seat_column) IN (
	      SELECT r, c FROM unnest($2::int[], $3::int[]) AS req(r, c))
	ORDER BY bs.seat_row, bs.seat_column`

func (r *BookingRepository) CreateBooking(ctx context.Context, b *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	rows, cols := seatArrays(b.Seats)

	taken, err := scanSeats(tx.QueryContext(ctx, occupiedAmongQuery, b.ShowtimeID, rows, cols))
	if err != nil {
		return fmt.Errorf("check seat availability: %w", err)
	}
	if len(taken) > 0 {
		return apperrors.SeatAlreadyBooked(taken)
	}

	insertBooking := `
		INSERT INTO bookings (booking_reference, user_id, showtime_id, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, insertBooking,
		b.Reference,
		b.UserID,
		b.ShowtimeID,
		b.TotalAmount,
		b.Status,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return r.writeError(b, "insert booking", err)
	}

	insertSeats := `
		INSERT INTO booking_seats (booking_id, showtime_id, seat_row, seat_column)
		SELECT $1::bigint, $2::int, r, c FROM unnest($3::int[], $4::int[]) AS req(r, c)`

	if _, err := tx.ExecContext(ctx, insertSeats, b.ID, b.ShowtimeID, rows, cols); err != nil {
		return r.writeError(b, "insert booking seats", err)
	}

	if err := tx.Commit(); err != nil {
		return r.writeError(b, "commit booking", err)
	}
	return nil
}

// writeError maps unique violations to domain conflicts and resets the
// fields filled by the aborted insert.
func (r *BookingRepository) writeError(b *models.Booking, op string, err error) error {
	b.ID = 0
	b.CreatedAt = time.Time{}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case database.ActiveSeatConstraint:
			return apperrors.SeatAlreadyBooked(nil)
		case database.BookingReferenceConstraint:
			return apperrors.ReferenceCollision(b.Reference, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *BookingRepository) OccupiedSeats(ctx context.Context, showtimeID int64, seats []models.SeatCoordinate) ([]models.SeatCoordinate, error) {
	if len(seats) > 0 {
		rows, cols := seatArrays(seats)
		return scanSeats(r.db.QueryWithRetry(ctx, occupiedAmongQuery, showtimeID, rows, cols))
	}
	return scanSeats(r.db.QueryWithRetry(ctx, occupiedSeatsQuery+` ORDER BY bs.seat_row, bs.seat_column`, showtimeID))
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.db.QueryRowContext(ctx, query, bookingID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seats, err := scanSeats(r.db.QueryContext(ctx,
		`SELECT seat_row, seat_column FROM booking_seats WHERE booking_id = $1 ORDER BY seat_row, seat_column`,
		bookingID))
	if err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}
	b.Seats = seats
	return b, nil
}

func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*models.Booking
	byID := make(map[int64]*models.Booking)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}

	ids := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}

	seatRows, err := r.db.QueryContext(ctx, `
		SELECT booking_id, seat_row, seat_column
		FROM booking_seats
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, seat_row, seat_column`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load booking seats: %w", err)
	}
	defer seatRows.Close()

	for seatRows.Next() {
		var bookingID int64
		var seat models.SeatCoordinate
		if err := seatRows.Scan(&bookingID, &seat.Row, &seat.Column); err != nil {
			return nil, err
		}
		if b, ok := byID[bookingID]; ok {
			b.Seats = append(b.Seats, seat)
		}
	}
	return bookings, seatRows.Err()
}

func (r *BookingRepository) CancelBooking(ctx context.Context, bookingID, userID int64, at time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $1
		WHERE id = $2 AND user_id = $3 AND status = 'confirmed'`,
		at, bookingID, userID)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE booking_seats SET active = FALSE WHERE booking_id = $1`, bookingID); err != nil {
		return false, fmt.Errorf("release booking seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit cancellation: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.UserID,
		&b.ShowtimeID,
		&b.TotalAmount,
		&b.Status,
		&b.CreatedAt,
		&b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scanSeats(rows *sql.Rows, err error) ([]models.SeatCoordinate, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.SeatCoordinate
	for rows.Next() {
		var seat models.SeatCoordinate
		if err := rows.Scan(&seat.Row, &seat.Column); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func seatArrays(seats []models.SeatCoordinate) (interface{}, interface{}) {
	rows := make([]int64, len(seats))
	cols := make([]int64, len(seats))
	for i, seat := range seats {
		rows[i] = int64(seat.Row)
		cols[i] = int64(seat.Column)
	}
	return pq.Array(rows), pq.Array(cols)
}
