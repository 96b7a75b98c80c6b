package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingEventRepository_Record(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingEventRepository(db)
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insert := regexp.QuoteMeta(`ON CONFLICT (booking_id, event_type) DO NOTHING`)

	mock.ExpectExec(insert).
		WithArgs(int64(7), "booking.cancelled", "CTABCDEFGHIJ", int64(10), int64(1), sqlmock.AnyArg(), nil, occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).
		WillReturnResult(sqlmock.NewResult(0, 0))

	e := BookingEvent{
		BookingID:  7,
		EventType:  "booking.cancelled",
		Reference:  "CTABCDEFGHIJ",
		UserID:     10,
		ShowtimeID: 1,
		Seats:      []string{"A1"},
		OccurredAt: occurred,
	}

	inserted, err := repo.Record(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
