// Package smoke checks a running API against the core booking rules.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"cinematime/internal/client"
	"cinematime/internal/models"
)

// Validator books and cancels real seats, so point it at a showtime that
// starts more than the minimum cancellation lead time from now.
type Validator struct {
	alice *client.Client
	bob   *client.Client
}

func NewValidator(baseURL string, aliceID, bobID int64) *Validator {
	alice := client.New(baseURL, aliceID)
	return &Validator{alice: alice, bob: alice.AsUser(bobID)}
}

// Run leaves no confirmed bookings behind when it succeeds
func (v *Validator) Run(ctx context.Context, showtimeID int64) error {
	seatMap, err := v.alice.SeatMap(ctx, showtimeID)
	if err != nil {
		return fmt.Errorf("seat map: %w", err)
	}
	pair, ok := freePair(seatMap)
	if !ok {
		return fmt.Errorf("showtime %d has no two adjacent free seats", showtimeID)
	}

	steps := []struct {
		name string
		run  func(context.Context, int64, *models.SeatMap, []models.SeatCoordinate) error
	}{
		{"book two seats", v.bookTwoSeats},
		{"reject out of range seat", v.rejectOutOfRange},
		{"cancel and rebook", v.cancelAndRebook},
	}
	for _, step := range steps {
		slog.Info("Running smoke step", "step", step.name)
		if err := step.run(ctx, showtimeID, seatMap, pair); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	slog.Info("All smoke steps passed", "showtime_id", showtimeID)
	return nil
}

func (v *Validator) bookTwoSeats(ctx context.Context, showtimeID int64, seatMap *models.SeatMap, pair []models.SeatCoordinate) error {
	b, err := v.alice.CreateBooking(ctx, showtimeID, pair...)
	if err != nil {
		return err
	}
	defer v.cleanup(ctx, v.alice, b.ID)

	want := models.TotalFor(seatMap.Showtime.Price, 2)
	got, err := decimal.NewFromString(b.TotalAmount)
	if err != nil || !got.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want.StringFixed(2), b.TotalAmount)
	}

	_, err = v.bob.CreateBooking(ctx, showtimeID, pair[0])
	return expectStatus(err, http.StatusConflict, "SeatAlreadyBooked")
}

func (v *Validator) rejectOutOfRange(ctx context.Context, showtimeID int64, seatMap *models.SeatMap, _ []models.SeatCoordinate) error {
	outside := models.SeatCoordinate{Row: seatMap.Showtime.Rows + 1, Column: 1}
	_, err := v.alice.CreateBooking(ctx, showtimeID, outside)
	return expectStatus(err, http.StatusBadRequest, "SeatOutOfRange")
}

func (v *Validator) cancelAndRebook(ctx context.Context, showtimeID int64, _ *models.SeatMap, pair []models.SeatCoordinate) error {
	b, err := v.alice.CreateBooking(ctx, showtimeID, pair...)
	if err != nil {
		return err
	}

	cancelled, err := v.alice.CancelBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	if cancelled.Status != models.BookingStatusCancelled {
		return fmt.Errorf("expected status cancelled, got %s", cancelled.Status)
	}

	_, err = v.alice.CancelBooking(ctx, b.ID)
	if err := expectStatus(err, http.StatusUnprocessableEntity, "AlreadyCancelled"); err != nil {
		return err
	}

	rebooked, err := v.bob.CreateBooking(ctx, showtimeID, pair...)
	if err != nil {
		return fmt.Errorf("released seats were not bookable: %w", err)
	}
	v.cleanup(ctx, v.bob, rebooked.ID)
	return nil
}

func (v *Validator) cleanup(ctx context.Context, c *client.Client, bookingID int64) {
	if _, err := c.CancelBooking(ctx, bookingID); err != nil {
		slog.Warn("Failed to cancel smoke booking", "booking_id", bookingID, "error", err)
	}
}

func expectStatus(err error, status int, reason string) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("expected %d %s, got %v", status, reason, err)
	}
	if apiErr.StatusCode != status || apiErr.Body.Reason != reason {
		return fmt.Errorf("expected %d %s, got %w", status, reason, apiErr)
	}
	return nil
}

// freePair finds two free seats next to each other in the same row
func freePair(seatMap *models.SeatMap) ([]models.SeatCoordinate, bool) {
	for _, row := range seatMap.Rows {
		for i := 0; i+1 < len(row.Seats); i++ {
			if row.Seats[i].Available && row.Seats[i+1].Available {
				return []models.SeatCoordinate{
					{Row: row.Row, Column: row.Seats[i].Column},
					{Row: row.Row, Column: row.Seats[i+1].Column},
				}, true
			}
		}
	}
	return nil, false
}
