package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"
	"github.com/shopspring/decimal"

	"cinematime/internal/models"
	"cinematime/internal/repository"
)

// errMalformed marks messages that can never be processed
var errMalformed = errors.New("malformed event")

// EventRecorder journals booking events
type EventRecorder interface {
	Record(ctx context.Context, e repository.BookingEvent) (bool, error)
}

type Handlers struct {
	events  EventRecorder
	timeout time.Duration
}

func NewHandlers(events EventRecorder) *Handlers {
	return &Handlers{events: events, timeout: 10 * time.Second}
}

func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	h.handle(m, models.EventBookingConfirmed, h.processConfirmed)
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	h.handle(m, models.EventBookingCancelled, h.processCancelled)
}

// handle acks processed and malformed messages. Anything else is left
// unacknowledged so NATS Streaming redelivers it after AckWait.
func (h *Handlers) handle(m *stan.Msg, subject string, process func(context.Context, []byte) error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := process(ctx, m.Data)
	switch {
	case err == nil:
	case errors.Is(err, errMalformed):
		slog.Error("Dropping malformed event", "subject", subject, "sequence", m.Sequence, "error", err)
	default:
		slog.Error("Failed to process event, awaiting redelivery", "subject", subject, "sequence", m.Sequence, "error", err)
		return
	}

	if err := m.Ack(); err != nil {
		slog.Error("Failed to ack event", "subject", subject, "sequence", m.Sequence, "error", err)
	}
}

func (h *Handlers) processConfirmed(ctx context.Context, data []byte) error {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if event.BookingID == 0 {
		return fmt.Errorf("%w: missing booking id", errMalformed)
	}

	record := repository.BookingEvent{
		BookingID:  event.BookingID,
		EventType:  models.EventBookingConfirmed,
		Reference:  event.Reference,
		UserID:     event.UserID,
		ShowtimeID: event.ShowtimeID,
		Seats:      event.Seats,
		OccurredAt: event.Timestamp,
	}
	if event.TotalAmount != "" {
		total, err := decimal.NewFromString(event.TotalAmount)
		if err != nil {
			return fmt.Errorf("%w: total amount %q", errMalformed, event.TotalAmount)
		}
		record.TotalAmount = &total
	}

	return h.record(ctx, record)
}

func (h *Handlers) processCancelled(ctx context.Context, data []byte) error {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if event.BookingID == 0 {
		return fmt.Errorf("%w: missing booking id", errMalformed)
	}

	return h.record(ctx, repository.BookingEvent{
		BookingID:  event.BookingID,
		EventType:  models.EventBookingCancelled,
		Reference:  event.Reference,
		UserID:     event.UserID,
		ShowtimeID: event.ShowtimeID,
		Seats:      event.Seats,
		OccurredAt: event.Timestamp,
	})
}

func (h *Handlers) record(ctx context.Context, e repository.BookingEvent) error {
	if e.Seats == nil {
		e.Seats = []string{}
	}
	inserted, err := h.events.Record(ctx, e)
	if err != nil {
		return fmt.Errorf("record %s for booking %d: %w", e.EventType, e.BookingID, err)
	}
	if !inserted {
		slog.Info("Ignoring duplicate event", "event_type", e.EventType, "booking_id", e.BookingID)
		return nil
	}
	slog.Info("Recorded booking event", "event_type", e.EventType, "booking_id", e.BookingID, "reference", e.Reference)
	return nil
}
