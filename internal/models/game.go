package models

import "time"

// Game is the activity that slots are scheduled for.
type Game struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"size:255;uniqueIndex;not null"`
	Description string
	Background  string `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Slots []Slot `gorm:"foreignKey:GameID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}
