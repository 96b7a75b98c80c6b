// Package bookingtest provides in-memory implementations of the booking
// engine's collaborators for use in tests.
package bookingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "cinematime/internal/errors"
	"cinematime/internal/models"
)

type seatKey struct {
	showtimeID int64
	seat       models.SeatCoordinate
}

// Store keeps bookings in memory. Its active seat table plays the role of
// the partial unique index on confirmed seats.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	bookings   map[int64]*models.Booking
	active     map[seatKey]int64
	references map[string]int64
	seatRows   int

	failNext      error
	failAfterNext error
	reportNoSeats bool

	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		bookings:   make(map[int64]*models.Booking),
		active:     make(map[seatKey]int64),
		references: make(map[string]int64),
		Now:        time.Now,
	}
}

// FailNext makes the next CreateBooking fail with err before anything is written
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// FailAfterNext makes the next CreateBooking persist the booking and then
// report err, as when a commit acknowledgement is lost.
func (s *Store) FailAfterNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfterNext = err
}

// ReportConflictsWithoutSeats makes seat conflicts come back unnamed,
// the way a unique index violation does.
func (s *Store) ReportConflictsWithoutSeats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportNoSeats = true
}

func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	if _, exists := s.references[b.Reference]; exists {
		return apperrors.ReferenceCollision(b.Reference, nil)
	}

	var taken []models.SeatCoordinate
	for _, seat := range b.Seats {
		if _, held := s.active[seatKey{b.ShowtimeID, seat}]; held {
			taken = append(taken, seat)
		}
	}
	if len(taken) > 0 {
		if s.reportNoSeats {
			return apperrors.SeatAlreadyBooked(nil)
		}
		return apperrors.SeatAlreadyBooked(taken)
	}

	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = s.Now()

	stored := cloneBooking(b)
	s.bookings[b.ID] = stored
	s.references[b.Reference] = b.ID
	for _, seat := range b.Seats {
		s.active[seatKey{b.ShowtimeID, seat}] = b.ID
	}
	s.seatRows += len(b.Seats)

	if err := s.failAfterNext; err != nil {
		s.failAfterNext = nil
		return err
	}
	return nil
}

func (s *Store) OccupiedSeats(ctx context.Context, showtimeID int64, seats []models.SeatCoordinate) ([]models.SeatCoordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var occupied []models.SeatCoordinate
	if len(seats) > 0 {
		for _, seat := range seats {
			if _, held := s.active[seatKey{showtimeID, seat}]; held {
				occupied = append(occupied, seat)
			}
		}
	} else {
		for key := range s.active {
			if key.showtimeID == showtimeID {
				occupied = append(occupied, key.seat)
			}
		}
	}
	models.SortSeats(occupied)
	return occupied, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	return cloneBooking(b), nil
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID int64) ([]*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			result = append(result, cloneBooking(b))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) CancelBooking(ctx context.Context, bookingID, userID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok || b.UserID != userID || b.Status != models.BookingStatusConfirmed {
		return false, nil
	}

	b.Status = models.BookingStatusCancelled
	cancelledAt := at
	b.CancelledAt = &cancelledAt
	for _, seat := range b.Seats {
		key := seatKey{b.ShowtimeID, seat}
		if s.active[key] == b.ID {
			delete(s.active, key)
		}
	}
	return true, nil
}

// BookingCount is the number of booking rows ever written
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// SeatRowCount is the number of seat line items ever written
func (s *Store) SeatRowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatRows
}

// ConfirmedHolders returns how many confirmed bookings contain the seat
func (s *Store) ConfirmedHolders(showtimeID int64, seat models.SeatCoordinate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, b := range s.bookings {
		if b.ShowtimeID != showtimeID || b.Status != models.BookingStatusConfirmed {
			continue
		}
		for _, held := range b.Seats {
			if held == seat {
				count++
			}
		}
	}
	return count
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	c.Seats = append([]models.SeatCoordinate(nil), b.Seats...)
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}

// Catalog is an in-memory showtime catalog
type Catalog struct {
	mu        sync.RWMutex
	showtimes map[int64]*models.Showtime
	err       error
	lookups   int
}

func NewCatalog(showtimes ...*models.Showtime) *Catalog {
	c := &Catalog{showtimes: make(map[int64]*models.Showtime)}
	for _, s := range showtimes {
		c.Put(s)
	}
	return c
}

func (c *Catalog) Put(s *models.Showtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *s
	c.showtimes[s.ID] = &copied
}

// SetError makes every lookup fail with err; nil restores normal behaviour
func (c *Catalog) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Lookups is the number of GetShowtime calls served
func (c *Catalog) Lookups() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookups
}

func (c *Catalog) GetShowtime(ctx context.Context, showtimeID int64) (*models.Showtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	s, ok := c.showtimes[showtimeID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

// NewShowtime builds a showtime on a rows x columns grid
func NewShowtime(id int64, rows, columns int, price int64, startsAt time.Time) *models.Showtime {
	return &models.Showtime{
		ID:          id,
		MovieID:     1,
		MovieTitle:  "Test Movie",
		TheaterID:   1,
		TheaterName: "Screen 1",
		Rows:        rows,
		Columns:     columns,
		Price:       decimal.NewFromInt(price),
		StartsAt:    startsAt,
	}
}
