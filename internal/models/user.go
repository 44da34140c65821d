package models

import "time"

// Role is the access level attached to a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNormal Role = "normal"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleNormal
}

// User represents an account that can hold bookings.
// At least one of Email or Username is set.
type User struct {
	ID             uint    `gorm:"primaryKey"`
	Email          *string `gorm:"size:255;uniqueIndex"`
	Username       *string `gorm:"size:255;uniqueIndex"`
	PasswordHash   string  `gorm:"size:255;not null"`
	ProfilePicture string  `gorm:"size:512"`
	Description    string
	Role           Role `gorm:"size:50;not null;default:'normal';index"`
	DepartmentID   uint `gorm:"not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Department *Department `gorm:"foreignKey:DepartmentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Bookings   []Booking   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
