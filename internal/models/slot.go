package models

import "time"

// DefaultSlotCapacity is used when a slot is created without an explicit capacity.
const DefaultSlotCapacity = 2

// Slot is a bookable time window for a game, covering [StartTime, EndTime).
type Slot struct {
	ID        uint      `gorm:"primaryKey"`
	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null"`
	Capacity  int       `gorm:"not null;default:2"`
	GameID    uint      `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Game     *Game     `gorm:"foreignKey:GameID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Bookings []Booking `gorm:"foreignKey:SlotID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
