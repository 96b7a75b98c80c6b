package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinematime/internal/booking"
	"cinematime/internal/booking/bookingtest"
	apperrors "cinematime/internal/errors"
	"cinematime/internal/inventory"
	"cinematime/internal/metrics"
	"cinematime/internal/models"
)

type published struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{subject: subject, data: data})
	return nil
}

var now = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

func newTestServices(t *testing.T, publisher *fakePublisher) (*Services, *bookingtest.Store) {
	t.Helper()
	clock := func() time.Time { return now }
	catalog := bookingtest.NewCatalog(bookingtest.NewShowtime(1, 8, 10, 200, now.Add(3*time.Hour)))
	store := bookingtest.NewStore()
	store.Now = clock
	engine := booking.NewEngine(catalog, store, booking.WithClock(clock))
	services := NewServices(engine, inventory.NewView(catalog, store), publisher, metrics.New())
	services.Bookings.now = clock
	return services, store
}

func TestBookingService_CreatePublishesConfirmedEvent(t *testing.T) {
	publisher := &fakePublisher{}
	services, _ := newTestServices(t, publisher)

	resp, err := services.Bookings.Create(context.Background(), 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		SeatLabels: []string{"A1", "A2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "400.00", resp.TotalAmount)
	assert.Equal(t, []string{"A1", "A2"}, resp.SeatLabels)
	assert.Equal(t, models.BookingStatusConfirmed, resp.Status)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventBookingConfirmed, publisher.events[0].subject)
	event := publisher.events[0].data.(models.BookingConfirmedEvent)
	assert.Equal(t, resp.ID, event.BookingID)
	assert.Equal(t, resp.Reference, event.Reference)
	assert.Equal(t, "400.00", event.TotalAmount)
	assert.Equal(t, now, event.Timestamp)
}

func TestBookingService_CreateRejectsBadLabel(t *testing.T) {
	publisher := &fakePublisher{}
	services, store := newTestServices(t, publisher)

	_, err := services.Bookings.Create(context.Background(), 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		SeatLabels: []string{"??"},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSeatLabel)
	assert.Equal(t, 0, store.BookingCount())
	assert.Empty(t, publisher.events)
}

func TestBookingService_RejectionIsNotPublished(t *testing.T) {
	publisher := &fakePublisher{}
	services, _ := newTestServices(t, publisher)

	_, err := services.Bookings.Create(context.Background(), 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		Seats:      []models.SeatCoordinate{{Row: 9, Column: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrSeatOutOfRange)
	assert.Empty(t, publisher.events)
}

func TestBookingService_PublishFailureDoesNotFailBooking(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("nats down")}
	services, store := newTestServices(t, publisher)

	resp, err := services.Bookings.Create(context.Background(), 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		Seats:      []models.SeatCoordinate{{Row: 1, Column: 1}},
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, 1, store.BookingCount())
}

func TestBookingService_CancelPublishesCancelledEvent(t *testing.T) {
	publisher := &fakePublisher{}
	services, _ := newTestServices(t, publisher)
	ctx := context.Background()

	created, err := services.Bookings.Create(ctx, 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		Seats:      []models.SeatCoordinate{{Row: 1, Column: 1}},
	})
	require.NoError(t, err)

	cancelled, err := services.Bookings.Cancel(ctx, 10, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, models.EventBookingCancelled, publisher.events[1].subject)
	event := publisher.events[1].data.(models.BookingCancelledEvent)
	assert.Equal(t, []string{"A1"}, event.Seats)

	_, err = services.Bookings.Cancel(ctx, 10, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
	assert.Len(t, publisher.events, 2)
}

func TestBookingService_GetAndList(t *testing.T) {
	services, _ := newTestServices(t, &fakePublisher{})
	ctx := context.Background()

	created, err := services.Bookings.Create(ctx, 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		Seats:      []models.SeatCoordinate{{Row: 2, Column: 2}},
	})
	require.NoError(t, err)

	got, err := services.Bookings.Get(ctx, 10, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Reference, got.Reference)

	_, err = services.Bookings.Get(ctx, 11, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := services.Bookings.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = services.Bookings.List(ctx, 11)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestShowtimeService_Occupied(t *testing.T) {
	services, _ := newTestServices(t, &fakePublisher{})
	ctx := context.Background()

	_, err := services.Bookings.Create(ctx, 10, &models.CreateBookingRequest{
		ShowtimeID: 1,
		SeatLabels: []string{"B3", "A1"},
	})
	require.NoError(t, err)

	occupied, err := services.Showtimes.Occupied(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B3"}, occupied.SeatLabels)

	_, err = services.Showtimes.Occupied(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrShowtimeNotFound)
}
