package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cinematime/internal/models"
)

var ErrUnauthorized = errors.New("user is not authorized")

// Kind groups rejection reasons by how callers should react to them
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindPolicy     Kind = "policy"
	KindStorage    Kind = "storage"
)

// Reason names the exact rule a request violated
type Reason string

const (
	ReasonEmptySeatSelection      Reason = "EmptySeatSelection"
	ReasonInvalidSeatLabel        Reason = "InvalidSeatLabel"
	ReasonSeatOutOfRange          Reason = "SeatOutOfRange"
	ReasonShowtimeNotFound        Reason = "ShowtimeNotFound"
	ReasonNotFound                Reason = "NotFound"
	ReasonSeatAlreadyBooked       Reason = "SeatAlreadyBooked"
	ReasonReferenceCollision      Reason = "ReferenceCollision"
	ReasonAlreadyCancelled        Reason = "AlreadyCancelled"
	ReasonShowtimeAlreadyOccurred Reason = "ShowtimeAlreadyOccurred"
	ReasonTooCloseToShowtime      Reason = "TooCloseToShowtime"
	ReasonStorageFailure          Reason = "StorageFailure"
)

// Error is a rejected booking or cancellation.
// Two errors match with errors.Is when their reasons are equal.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Seats   []models.SeatCoordinate
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Reason)
	}
	if len(e.Seats) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(models.SeatLabels(e.Seats), ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// Sentinels for errors.Is checks
var (
	ErrEmptySeatSelection      = &Error{Kind: KindValidation, Reason: ReasonEmptySeatSelection}
	ErrInvalidSeatLabel        = &Error{Kind: KindValidation, Reason: ReasonInvalidSeatLabel}
	ErrSeatOutOfRange          = &Error{Kind: KindValidation, Reason: ReasonSeatOutOfRange}
	ErrShowtimeNotFound        = &Error{Kind: KindNotFound, Reason: ReasonShowtimeNotFound}
	ErrNotFound                = &Error{Kind: KindNotFound, Reason: ReasonNotFound}
	ErrSeatAlreadyBooked       = &Error{Kind: KindConflict, Reason: ReasonSeatAlreadyBooked}
	ErrReferenceCollision      = &Error{Kind: KindConflict, Reason: ReasonReferenceCollision}
	ErrAlreadyCancelled        = &Error{Kind: KindPolicy, Reason: ReasonAlreadyCancelled}
	ErrShowtimeAlreadyOccurred = &Error{Kind: KindPolicy, Reason: ReasonShowtimeAlreadyOccurred}
	ErrTooCloseToShowtime      = &Error{Kind: KindPolicy, Reason: ReasonTooCloseToShowtime}
	ErrStorage                 = &Error{Kind: KindStorage, Reason: ReasonStorageFailure}
)

func EmptySeatSelection() *Error {
	return &Error{Kind: KindValidation, Reason: ReasonEmptySeatSelection, Message: "no seats selected"}
}

func InvalidSeatLabel(err error) *Error {
	return &Error{Kind: KindValidation, Reason: ReasonInvalidSeatLabel, Message: err.Error(), Err: err}
}

func SeatOutOfRange(seats []models.SeatCoordinate) *Error {
	return &Error{Kind: KindValidation, Reason: ReasonSeatOutOfRange, Message: "seats outside the theater", Seats: seats}
}

func ShowtimeNotFound(showtimeID int64) *Error {
	return &Error{Kind: KindNotFound, Reason: ReasonShowtimeNotFound, Message: fmt.Sprintf("showtime %d not found", showtimeID)}
}

func BookingNotFound(bookingID int64) *Error {
	return &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: fmt.Sprintf("booking %d not found", bookingID)}
}

func SeatAlreadyBooked(seats []models.SeatCoordinate) *Error {
	return &Error{Kind: KindConflict, Reason: ReasonSeatAlreadyBooked, Message: "seats already booked", Seats: seats}
}

func ReferenceCollision(reference string, err error) *Error {
	return &Error{Kind: KindConflict, Reason: ReasonReferenceCollision, Message: fmt.Sprintf("booking reference %s already in use", reference), Err: err}
}

func AlreadyCancelled() *Error {
	return &Error{Kind: KindPolicy, Reason: ReasonAlreadyCancelled, Message: "booking is already cancelled"}
}

func ShowtimeAlreadyOccurred() *Error {
	return &Error{Kind: KindPolicy, Reason: ReasonShowtimeAlreadyOccurred, Message: "showtime has already started"}
}

func TooCloseToShowtime(lead time.Duration) *Error {
	return &Error{Kind: KindPolicy, Reason: ReasonTooCloseToShowtime, Message: fmt.Sprintf("cancellation closes %s before the showtime", lead)}
}

// Storage wraps an infrastructure failure. The wrapped error is kept for
// logging and is never shown to API callers.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Reason: ReasonStorageFailure, Message: op + " failed", Err: err}
}

// As extracts the taxonomy error from err, if any
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindStorage for unclassified errors
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindStorage
}

// PublicMessage is the caller-facing text; storage details are withheld
func (e *Error) PublicMessage() string {
	if e.Kind == KindStorage {
		return "booking storage is temporarily unavailable"
	}
	if e.Message == "" {
		return string(e.Reason)
	}
	return e.Message
}
