package capacity

import (
	"context"

	"gorm.io/gorm"

	"slotbooking/backend/internal/models"
)

// HasOverlap reports whether a slot of gameID other than excludeSlotID
// overlaps candidate. It is Interval.Overlaps expressed in SQL.
func HasOverlap(ctx context.Context, tx *gorm.DB, gameID uint, candidate Interval, excludeSlotID *uint) (bool, error) {
	q := tx.WithContext(ctx).Model(&models.Slot{}).
		Where("game_id = ? AND start_time < ? AND end_time > ?", gameID, candidate.End.UTC(), candidate.Start.UTC())
	if excludeSlotID != nil {
		q = q.Where("id <> ?", *excludeSlotID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountBookings returns the number of booking rows on slotID, any status.
func CountBookings(ctx context.Context, tx *gorm.DB, slotID uint) (int64, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&models.Booking{}).Where("slot_id = ?", slotID).Count(&n).Error
	return n, err
}

// SlotBookings loads every booking row on slotID.
func SlotBookings(ctx context.Context, tx *gorm.DB, slotID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).Where("slot_id = ?", slotID).Order("id").Find(&bookings).Error
	return bookings, err
}

// WithFreePlaces is a gorm scope keeping only slots whose booking count is
// below capacity.
func WithFreePlaces(db *gorm.DB) *gorm.DB {
	return db.Where("(SELECT COUNT(*) FROM bookings WHERE bookings.slot_id = slots.id) < slots.capacity")
}

// Overlapping returns the intervals of gameID's slots, other than
// excludeSlotID, that overlap candidate, ordered by start time.
func Overlapping(ctx context.Context, tx *gorm.DB, gameID uint, candidate Interval, excludeSlotID *uint) ([]Interval, error) {
	q := tx.WithContext(ctx).Model(&models.Slot{}).
		Where("game_id = ? AND start_time < ?", gameID, candidate.End.UTC())
	if excludeSlotID != nil {
		q = q.Where("id <> ?", *excludeSlotID)
	}
	var slots []models.Slot
	if err := q.Order("start_time").Find(&slots).Error; err != nil {
		return nil, err
	}
	existing := make([]Interval, len(slots))
	for i, s := range slots {
		existing[i] = SlotInterval(s)
	}
	return FindOverlaps(candidate, existing), nil
}
