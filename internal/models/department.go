package models

import "time"

// Department groups users. Titles are unique.
type Department struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"size:255;uniqueIndex;not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Users []User `gorm:"foreignKey:DepartmentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
}
