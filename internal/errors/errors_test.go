package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cinematime/internal/models"
)

func TestError_IsMatchesOnReason(t *testing.T) {
	err := SeatAlreadyBooked([]models.SeatCoordinate{{Row: 1, Column: 1}})
	wrapped := fmt.Errorf("commit: %w", err)

	assert.ErrorIs(t, wrapped, ErrSeatAlreadyBooked)
	assert.NotErrorIs(t, wrapped, ErrReferenceCollision)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestError_MessageNamesSeats(t *testing.T) {
	err := SeatOutOfRange([]models.SeatCoordinate{{Row: 9, Column: 1}, {Row: 1, Column: 11}})
	assert.Equal(t, "seats outside the theater: I1, A11", err.Error())
}

func TestStorage_HidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	err := Storage("create booking", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "10.0.0.5")
	assert.NotContains(t, err.PublicMessage(), "10.0.0.5")
}

func TestKindOf_UnclassifiedIsStorage(t *testing.T) {
	assert.Equal(t, KindStorage, KindOf(errors.New("boom")))
	assert.Equal(t, KindPolicy, KindOf(TooCloseToShowtime(2*time.Hour)))
	assert.Equal(t, KindNotFound, KindOf(ShowtimeNotFound(4)))
	assert.Equal(t, KindValidation, KindOf(InvalidSeatLabel(errors.New(`invalid seat label "?"`))))
}

func TestAs(t *testing.T) {
	e, ok := As(fmt.Errorf("outer: %w", AlreadyCancelled()))
	assert.True(t, ok)
	assert.Equal(t, ReasonAlreadyCancelled, e.Reason)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
