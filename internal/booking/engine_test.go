package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinematime/internal/booking/bookingtest"
	apperrors "cinematime/internal/errors"
	"cinematime/internal/models"
)

var _ Store = (*bookingtest.Store)(nil)
var _ ShowtimeCatalog = (*bookingtest.Catalog)(nil)

const (
	showtimeX int64 = 1
	alice     int64 = 10
	bob       int64 = 11
)

var baseTime = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

type fixture struct {
	engine  *Engine
	store   *bookingtest.Store
	catalog *bookingtest.Catalog
	now     time.Time
	mu      sync.Mutex
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// newFixture sets up showtime X: 8 rows x 10 columns, 200 per seat, starting 3h after baseTime
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   bookingtest.NewStore(),
		catalog: bookingtest.NewCatalog(bookingtest.NewShowtime(showtimeX, 8, 10, 200, baseTime.Add(3*time.Hour))),
		now:     baseTime,
	}
	f.store.Now = f.clock
	opts = append([]Option{WithClock(f.clock)}, opts...)
	f.engine = NewEngine(f.catalog, f.store, opts...)
	return f
}

func seats(pairs ...int) []models.SeatCoordinate {
	result := make([]models.SeatCoordinate, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		result = append(result, models.SeatCoordinate{Row: pairs[i], Column: pairs[i+1]})
	}
	return result
}

func TestCommit_BooksTwoSeats(t *testing.T) {
	f := newFixture(t)

	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1, 1, 2))
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, alice, b.UserID)
	assert.Equal(t, showtimeX, b.ShowtimeID)
	assert.True(t, decimal.NewFromInt(400).Equal(b.TotalAmount), "total was %s", b.TotalAmount)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.NotEmpty(t, b.Reference)
	assert.True(t, strings.HasPrefix(b.Reference, DefaultReferencePrefix))
	assert.Equal(t, seats(1, 1, 1, 2), b.Seats)
	assert.Equal(t, baseTime, b.CreatedAt)
	assert.Nil(t, b.CancelledAt)
}

func TestCommit_RejectsEmptySelection(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptySeatSelection)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCommit_RejectsOutOfRangeSeat(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(9, 1))
	require.ErrorIs(t, err, apperrors.ErrSeatOutOfRange)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	assert.Equal(t, seats(9, 1), appErr.Seats)
}

func TestCommit_RejectsGridEdges(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		seats []models.SeatCoordinate
	}{
		{"row zero", seats(0, 1)},
		{"column zero", seats(1, 0)},
		{"column past last", seats(1, 11)},
		{"negative row", seats(-1, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Commit(context.Background(), alice, showtimeX, tt.seats)
			assert.ErrorIs(t, err, apperrors.ErrSeatOutOfRange)
		})
	}

	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(8, 10))
	require.NoError(t, err)
	assert.Equal(t, seats(8, 10), b.Seats)
}

func TestCommit_PreconditionOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Commit(context.Background(), bob, showtimeX, seats(2, 2))
	require.NoError(t, err)

	// empty selection wins over a missing showtime
	_, err = f.engine.Commit(context.Background(), alice, 999, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptySeatSelection)

	// missing showtime wins over an out-of-range seat
	_, err = f.engine.Commit(context.Background(), alice, 999, seats(9, 1))
	assert.ErrorIs(t, err, apperrors.ErrShowtimeNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	// out-of-range wins over an occupied seat
	_, err = f.engine.Commit(context.Background(), alice, showtimeX, seats(2, 2, 9, 1))
	assert.ErrorIs(t, err, apperrors.ErrSeatOutOfRange)
}

func TestCommit_RejectsOccupiedSeatNamingIt(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Commit(context.Background(), bob, showtimeX, seats(1, 1, 1, 2))
	require.NoError(t, err)

	_, err = f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 2, 1, 3))
	require.ErrorIs(t, err, apperrors.ErrSeatAlreadyBooked)

	appErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.KindConflict, appErr.Kind)
	assert.Equal(t, seats(1, 2), appErr.Seats)
	assert.Contains(t, err.Error(), "A2")
}

func TestCommit_NamesSeatsAfterUnnamedConflict(t *testing.T) {
	f := newFixture(t)
	f.store.ReportConflictsWithoutSeats()

	_, err := f.engine.Commit(context.Background(), bob, showtimeX, seats(3, 4))
	require.NoError(t, err)

	_, err = f.engine.Commit(context.Background(), alice, showtimeX, seats(3, 5, 3, 4))
	require.ErrorIs(t, err, apperrors.ErrSeatAlreadyBooked)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, seats(3, 4), appErr.Seats)
}

func TestCommit_DuplicateSeatsCollapse(t *testing.T) {
	f := newFixture(t)

	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 3, 1, 1, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, seats(1, 1, 1, 3), b.Seats)
	assert.True(t, decimal.NewFromInt(400).Equal(b.TotalAmount))
	assert.Equal(t, 2, f.store.SeatRowCount())
}

func TestCommit_UsesPriceAtCommitTime(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)

	repriced := bookingtest.NewShowtime(showtimeX, 8, 10, 250, baseTime.Add(3*time.Hour))
	f.catalog.Put(repriced)

	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 2, 1, 3))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(b.TotalAmount), "total was %s", b.TotalAmount)
}

func TestCommit_ConcurrentSameSeatExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	const attempts = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts []error
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			<-start
			_, err := f.engine.Commit(context.Background(), user, showtimeX, seats(1, 1))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				conflicts = append(conflicts, err)
			}
		}(int64(100 + i))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, conflicts, attempts-1)
	for _, err := range conflicts {
		require.ErrorIs(t, err, apperrors.ErrSeatAlreadyBooked)
		appErr, _ := apperrors.As(err)
		assert.Equal(t, seats(1, 1), appErr.Seats)
	}
	assert.Equal(t, 1, f.store.ConfirmedHolders(showtimeX, models.SeatCoordinate{Row: 1, Column: 1}))
}

func TestCommit_ConcurrentDisjointSeatsAllSucceed(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for row := 1; row <= 8; row++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			_, errs[row-1] = f.engine.Commit(context.Background(), int64(row), showtimeX, seats(row, 1, row, 2))
		}(row)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	occupied, err := f.store.OccupiedSeats(context.Background(), showtimeX, nil)
	require.NoError(t, err)
	assert.Len(t, occupied, 16)
}

func TestCommit_DifferentShowtimesDoNotConflict(t *testing.T) {
	f := newFixture(t)
	f.catalog.Put(bookingtest.NewShowtime(2, 8, 10, 200, baseTime.Add(5*time.Hour)))

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)
	_, err = f.engine.Commit(context.Background(), bob, 2, seats(1, 1))
	require.NoError(t, err)
}

func TestCommit_RejectionLeavesNoRows(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Commit(context.Background(), bob, showtimeX, seats(4, 4))
	require.NoError(t, err)
	require.Equal(t, 1, f.store.BookingCount())
	require.Equal(t, 1, f.store.SeatRowCount())

	rejected := [][]models.SeatCoordinate{
		nil,
		seats(9, 1),
		seats(4, 5, 4, 4, 4, 6),
	}
	for _, request := range rejected {
		_, err := f.engine.Commit(context.Background(), alice, showtimeX, request)
		require.Error(t, err)
	}

	assert.Equal(t, 1, f.store.BookingCount())
	assert.Equal(t, 1, f.store.SeatRowCount())

	_, err = f.engine.Commit(context.Background(), alice, showtimeX, seats(4, 5, 4, 6, 4, 7))
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.BookingCount())
	assert.Equal(t, 4, f.store.SeatRowCount())
}

func TestCommit_StorageFailureIsRetrySafe(t *testing.T) {
	f := newFixture(t)
	f.store.FailNext(errors.New("connection reset by peer"))

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(2, 1, 2, 2))
	require.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Equal(t, 0, f.store.BookingCount())

	appErr, _ := apperrors.As(err)
	assert.NotContains(t, appErr.PublicMessage(), "connection reset")

	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(2, 1, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, b.Status)
	assert.Equal(t, 1, f.store.BookingCount())
}

func TestCommit_RetryAfterLostAcknowledgementDoesNotDoubleBook(t *testing.T) {
	f := newFixture(t)
	f.store.FailAfterNext(errors.New("server closed the connection unexpectedly"))

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(2, 1))
	require.ErrorIs(t, err, apperrors.ErrStorage)

	_, err = f.engine.Commit(context.Background(), alice, showtimeX, seats(2, 1))
	require.ErrorIs(t, err, apperrors.ErrSeatAlreadyBooked)
	assert.Equal(t, 1, f.store.BookingCount())
}

func TestCommit_ReferenceCollision(t *testing.T) {
	fixed := ReferenceFunc(func() string { return "CTFIXED00000" })
	f := newFixture(t, WithReferenceGenerator(fixed))

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(5, 5))
	require.NoError(t, err)

	_, err = f.engine.Commit(context.Background(), bob, showtimeX, seats(6, 6))
	require.ErrorIs(t, err, apperrors.ErrReferenceCollision)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, 1, f.store.BookingCount())
}

func TestCommit_CatalogFailureIsStorageError(t *testing.T) {
	f := newFixture(t)
	f.catalog.SetError(errors.New("catalog down"))

	_, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestCancel_ThreeHoursAheadThenAgain(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1, 1, 2))
	require.NoError(t, err)

	cancelled, err := f.engine.Cancel(context.Background(), alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, baseTime, *cancelled.CancelledAt)

	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
	assert.Equal(t, apperrors.KindPolicy, apperrors.KindOf(err))
}

func TestCancel_OneHourAheadTooClose(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)

	f.setNow(baseTime.Add(2 * time.Hour))
	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrTooCloseToShowtime)
	assert.Equal(t, apperrors.KindPolicy, apperrors.KindOf(err))

	stored, err := f.engine.Get(context.Background(), alice, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsConfirmed())
}

func TestCancel_ExactlyAtLeadTimeIsAllowed(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)

	f.setNow(baseTime.Add(time.Hour))
	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	assert.NoError(t, err)
}

func TestCancel_AfterShowtime(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)

	f.setNow(baseTime.Add(4 * time.Hour))
	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrShowtimeAlreadyOccurred)
}

func TestCancel_OtherUsersBookingIsNotFound(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)

	_, err = f.engine.Cancel(context.Background(), bob, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.engine.Cancel(context.Background(), alice, 4242)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCancel_StateCheckedBeforeTiming(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)
	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	require.NoError(t, err)

	f.setNow(baseTime.Add(10 * time.Hour))
	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
}

func TestCancel_ReleasesSeatsForRebooking(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1, 1, 2))
	require.NoError(t, err)

	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	require.NoError(t, err)

	occupied, err := f.store.OccupiedSeats(context.Background(), showtimeX, nil)
	require.NoError(t, err)
	assert.Empty(t, occupied)

	rebooked, err := f.engine.Commit(context.Background(), bob, showtimeX, seats(1, 1, 1, 2))
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, rebooked.ID)
	assert.NotEqual(t, b.Reference, rebooked.Reference)

	// the cancelled booking stays cancelled
	old, err := f.engine.Get(context.Background(), alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, old.Status)
}

func TestCancel_ConcurrentCancelsOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(7, 7))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Cancel(context.Background(), alice, b.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
	}
	assert.Equal(t, 1, succeeded)
}

func TestCancel_CustomPolicy(t *testing.T) {
	f := newFixture(t, WithPolicy(CancellationPolicy{MinLeadTime: 30 * time.Minute}))
	b, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)

	f.setNow(baseTime.Add(2 * time.Hour))
	_, err = f.engine.Cancel(context.Background(), alice, b.ID)
	assert.NoError(t, err)
}

func TestListForUser_NewestFirst(t *testing.T) {
	f := newFixture(t)
	first, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 1))
	require.NoError(t, err)
	_, err = f.engine.Commit(context.Background(), bob, showtimeX, seats(1, 2))
	require.NoError(t, err)
	second, err := f.engine.Commit(context.Background(), alice, showtimeX, seats(1, 3))
	require.NoError(t, err)

	list, err := f.engine.ListForUser(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}
