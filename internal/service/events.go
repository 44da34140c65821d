package service

import (
	"context"
	"log"
	"time"

	"slotbooking/backend/internal/models"
)

// Booking event types. They double as AMQP routing keys.
const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingDeleted   = "booking.deleted"
)

// BookingEvent describes a committed change to a booking.
type BookingEvent struct {
	Type       string               `json:"type"`
	BookingID  uint                 `json:"booking_id"`
	UserID     uint                 `json:"user_id"`
	SlotID     uint                 `json:"slot_id"`
	Status     models.BookingStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

func newBookingEvent(typ string, b models.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SlotID:     b.SlotID,
		Status:     b.Status,
		OccurredAt: at.UTC(),
	}
}

// EventScope limits which booking events a watcher receives: every event,
// or only those about the bookings of UserID.
type EventScope struct {
	UserID uint
	All    bool
}

// Covers reports whether an event about a booking owned by userID is visible.
func (s EventScope) Covers(userID uint) bool {
	return s.All || s.UserID == userID
}

// Notifier receives booking events after their transaction commits.
// Delivery is best effort; errors never undo the change.
type Notifier interface {
	Publish(ctx context.Context, e BookingEvent) error
}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Publish(ctx context.Context, e BookingEvent) error {
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, e); err != nil {
			log.Printf("[booking] notify %s for booking %d failed: %v", e.Type, e.BookingID, err)
		}
	}
	return nil
}
