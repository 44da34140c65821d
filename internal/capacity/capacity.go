// Package capacity computes slot occupancy and detects time overlaps
// between slots of the same game.
package capacity

import "slotbooking/backend/internal/models"

// Occupancy summarises how full a slot is.
// BookedCount counts every booking row, cancelled ones included; that is the
// figure capacity is enforced against. ActiveCount excludes cancelled rows.
type Occupancy struct {
	Capacity    int  `json:"capacity"`
	BookedCount int  `json:"booked_count"`
	ActiveCount int  `json:"active_count"`
	Available   int  `json:"available"`
	IsFull      bool `json:"is_full"`
}

// Compute derives the occupancy of a slot with the given capacity and bookings.
func Compute(capacity int, bookings []models.Booking) Occupancy {
	active := 0
	for _, b := range bookings {
		if b.Status.Active() {
			active++
		}
	}
	return FromCounts(capacity, len(bookings), active)
}

// FromCounts builds an Occupancy from pre-aggregated counts.
func FromCounts(capacity, booked, active int) Occupancy {
	available := capacity - booked
	if available < 0 {
		available = 0
	}
	return Occupancy{
		Capacity:    capacity,
		BookedCount: booked,
		ActiveCount: active,
		Available:   available,
		IsFull:      booked >= capacity,
	}
}

// HasActiveBooking reports whether userID already holds a non-cancelled
// booking among bookings. A booking with id skipID is ignored.
func HasActiveBooking(bookings []models.Booking, userID, skipID uint) bool {
	for _, b := range bookings {
		if b.ID != skipID && b.UserID == userID && b.Status.Active() {
			return true
		}
	}
	return false
}
