package service

import (
	"context"
	"time"

	"cinematime/internal/booking"
	apperrors "cinematime/internal/errors"
	"cinematime/internal/logger"
	"cinematime/internal/messaging"
	"cinematime/internal/metrics"
	"cinematime/internal/models"
)

type BookingService struct {
	engine    *booking.Engine
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewBookingService(engine *booking.Engine, publisher messaging.Publisher, m *metrics.Metrics) *BookingService {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &BookingService{
		engine:    engine,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Create books the requested seats for userID and announces the booking
func (s *BookingService) Create(ctx context.Context, userID int64, req *models.CreateBookingRequest) (*models.BookingResponse, error) {
	seats, err := req.Coordinates()
	if err != nil {
		return nil, apperrors.InvalidSeatLabel(err)
	}

	start := time.Now()
	b, err := s.engine.Commit(ctx, userID, req.ShowtimeID, seats)
	if err != nil {
		s.metrics.ObserveCommit(outcome(err), 0, time.Since(start))
		logRejection(ctx, "Booking rejected", err, "showtime_id", req.ShowtimeID, "seats", len(seats))
		return nil, err
	}
	s.metrics.ObserveCommit("confirmed", len(b.Seats), time.Since(start))

	logger.WithContext(ctx).Info("Booking confirmed",
		"booking_id", b.ID,
		"reference", b.Reference,
		"showtime_id", b.ShowtimeID,
		"seats", len(b.Seats))

	event := models.BookingConfirmedEvent{
		BookingID:   b.ID,
		Reference:   b.Reference,
		UserID:      b.UserID,
		ShowtimeID:  b.ShowtimeID,
		Seats:       b.SeatLabels(),
		TotalAmount: b.TotalAmount.StringFixed(2),
		Timestamp:   s.now(),
	}
	if err := s.publisher.Publish(models.EventBookingConfirmed, event); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish booking confirmed event",
			"error", err,
			"booking_id", b.ID,
			"event_type", models.EventBookingConfirmed)
	}

	resp := models.NewBookingResponse(b)
	return &resp, nil
}

// Cancel cancels one of userID's bookings and releases its seats
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID int64) (*models.BookingResponse, error) {
	b, err := s.engine.Cancel(ctx, userID, bookingID)
	if err != nil {
		s.metrics.ObserveCancel(outcome(err), 0)
		logRejection(ctx, "Cancellation rejected", err, "booking_id", bookingID)
		return nil, err
	}
	s.metrics.ObserveCancel("cancelled", len(b.Seats))

	logger.WithContext(ctx).Info("Booking cancelled",
		"booking_id", b.ID,
		"reference", b.Reference,
		"showtime_id", b.ShowtimeID)

	event := models.BookingCancelledEvent{
		BookingID:  b.ID,
		Reference:  b.Reference,
		UserID:     b.UserID,
		ShowtimeID: b.ShowtimeID,
		Seats:      b.SeatLabels(),
		Timestamp:  s.now(),
	}
	if err := s.publisher.Publish(models.EventBookingCancelled, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking cancelled event",
			"error", err,
			"booking_id", b.ID,
			"event_type", models.EventBookingCancelled)
	}

	resp := models.NewBookingResponse(b)
	return &resp, nil
}

func (s *BookingService) Get(ctx context.Context, userID, bookingID int64) (*models.BookingResponse, error) {
	b, err := s.engine.Get(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	resp := models.NewBookingResponse(b)
	return &resp, nil
}

// List returns userID's bookings, newest first
func (s *BookingService) List(ctx context.Context, userID int64) (models.ListBookingsResponse, error) {
	bookings, err := s.engine.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make(models.ListBookingsResponse, len(bookings))
	for i, b := range bookings {
		result[i] = models.NewBookingResponse(b)
	}
	return result, nil
}

func outcome(err error) string {
	if e, ok := apperrors.As(err); ok {
		return string(e.Reason)
	}
	return string(apperrors.ReasonStorageFailure)
}

// logRejection logs rule violations at info and storage failures at error
func logRejection(ctx context.Context, msg string, err error, args ...any) {
	log := logger.WithContext(ctx)
	args = append(args, "error", err)
	if apperrors.KindOf(err) == apperrors.KindStorage {
		log.Error(msg, args...)
		return
	}
	log.Info(msg, args...)
}
