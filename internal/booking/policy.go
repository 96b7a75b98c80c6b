package booking

import (
	"time"

	apperrors "cinematime/internal/errors"
)

// DefaultMinCancelLead is how long before the showtime cancellation closes
const DefaultMinCancelLead = 2 * time.Hour

// CancellationPolicy decides whether a confirmed booking may still be cancelled
type CancellationPolicy struct {
	MinLeadTime time.Duration
}

func DefaultCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{MinLeadTime: DefaultMinCancelLead}
}

// deadline is the last instant a booking for a showtime starting at startsAt can be cancelled
func (p CancellationPolicy) deadline(startsAt time.Time) time.Time {
	return startsAt.Add(-p.MinLeadTime)
}

// Check applies the timing rules. Cancelling exactly MinLeadTime ahead is allowed.
func (p CancellationPolicy) Check(startsAt, now time.Time) error {
	if startsAt.Before(now) {
		return apperrors.ShowtimeAlreadyOccurred()
	}
	if now.After(p.deadline(startsAt)) {
		return apperrors.TooCloseToShowtime(p.MinLeadTime)
	}
	return nil
}
