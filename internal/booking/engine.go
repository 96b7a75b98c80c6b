package booking

import (
	"context"
	"time"

	apperrors "cinematime/internal/errors"
	"cinematime/internal/models"
)

// ShowtimeCatalog looks up the theater grid and seat price of a showtime.
// It returns (nil, nil) when the showtime does not exist.
type ShowtimeCatalog interface {
	GetShowtime(ctx context.Context, showtimeID int64) (*models.Showtime, error)
}

// Store persists bookings and their seat line items
type Store interface {
	// CreateBooking stores the header and every seat of b in one transaction.
	// It fills b.ID and b.CreatedAt. A seat held by another confirmed booking
	// yields ErrSeatAlreadyBooked, possibly without naming the seats.
	CreateBooking(ctx context.Context, b *models.Booking) error

	// OccupiedSeats returns the seats of the showtime held by confirmed bookings.
	// When seats is non-empty only those seats are considered.
	OccupiedSeats(ctx context.Context, showtimeID int64, seats []models.SeatCoordinate) ([]models.SeatCoordinate, error)

	// GetBooking returns (nil, nil) when the booking does not exist
	GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error)

	ListBookingsByUser(ctx context.Context, userID int64) ([]*models.Booking, error)

	// CancelBooking flips a confirmed booking owned by userID to cancelled and
	// releases its seats. It reports false when no confirmed booking matched.
	CancelBooking(ctx context.Context, bookingID, userID int64, at time.Time) (bool, error)
}

// Engine commits and cancels bookings
type Engine struct {
	catalog   ShowtimeCatalog
	store     Store
	policy    CancellationPolicy
	reference ReferenceGenerator
	now       func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for cancellation checks
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithReferenceGenerator(g ReferenceGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.reference = g
		}
	}
}

func WithPolicy(p CancellationPolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func NewEngine(catalog ShowtimeCatalog, store Store, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		store:     store,
		policy:    DefaultCancellationPolicy(),
		reference: NewReferenceGenerator(DefaultReferencePrefix),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Commit books seats for a user. Duplicate coordinates count once.
func (e *Engine) Commit(ctx context.Context, userID, showtimeID int64, seats []models.SeatCoordinate) (*models.Booking, error) {
	seats = models.NormalizeSeats(seats)
	if len(seats) == 0 {
		return nil, apperrors.EmptySeatSelection()
	}

	showtime, err := e.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, apperrors.Storage("load showtime", err)
	}
	if showtime == nil {
		return nil, apperrors.ShowtimeNotFound(showtimeID)
	}

	var outside []models.SeatCoordinate
	for _, seat := range seats {
		if !showtime.Contains(seat) {
			outside = append(outside, seat)
		}
	}
	if len(outside) > 0 {
		return nil, apperrors.SeatOutOfRange(outside)
	}

	b := &models.Booking{
		Reference:   e.reference.Generate(),
		UserID:      userID,
		ShowtimeID:  showtimeID,
		Seats:       seats,
		TotalAmount: models.TotalFor(showtime.Price, len(seats)),
		Status:      models.BookingStatusConfirmed,
	}

	if err := e.store.CreateBooking(ctx, b); err != nil {
		return nil, e.commitError(ctx, b, err)
	}
	return b, nil
}

func (e *Engine) commitError(ctx context.Context, b *models.Booking, err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		return apperrors.Storage("commit booking", err)
	}
	if appErr.Reason != apperrors.ReasonSeatAlreadyBooked || len(appErr.Seats) > 0 {
		return appErr
	}

	// The unique index rejected the insert without telling which seats lost.
	taken, lookupErr := e.store.OccupiedSeats(ctx, b.ShowtimeID, b.Seats)
	if lookupErr != nil || len(taken) == 0 {
		taken = b.Seats
	}
	return apperrors.SeatAlreadyBooked(taken)
}

// Cancel releases a confirmed booking owned by userID
func (e *Engine) Cancel(ctx context.Context, userID, bookingID int64) (*models.Booking, error) {
	b, err := e.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsConfirmed() {
		return nil, apperrors.AlreadyCancelled()
	}

	showtime, err := e.catalog.GetShowtime(ctx, b.ShowtimeID)
	if err != nil {
		return nil, apperrors.Storage("load showtime", err)
	}
	if showtime == nil {
		return nil, apperrors.ShowtimeNotFound(b.ShowtimeID)
	}

	now := e.now()
	if err := e.policy.Check(showtime.StartsAt, now); err != nil {
		return nil, err
	}

	cancelled, err := e.store.CancelBooking(ctx, b.ID, userID, now)
	if err != nil {
		return nil, apperrors.Storage("cancel booking", err)
	}
	if !cancelled {
		// a concurrent cancel won
		return nil, apperrors.AlreadyCancelled()
	}

	b.Status = models.BookingStatusCancelled
	b.CancelledAt = &now
	return b, nil
}

// Get returns a booking owned by userID. Bookings of other users are reported as not found.
func (e *Engine) Get(ctx context.Context, userID, bookingID int64) (*models.Booking, error) {
	b, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Storage("load booking", err)
	}
	if b == nil || b.UserID != userID {
		return nil, apperrors.BookingNotFound(bookingID)
	}
	return b, nil
}

// ListForUser returns the user's bookings, newest first
func (e *Engine) ListForUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	bookings, err := e.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Storage("list bookings", err)
	}
	return bookings, nil
}
