package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/models"
)

const (
	MinPasswordLength = 6

	msgEmailTaken         = "Email already registered"
	msgUsernameTaken      = "Username already taken"
	msgIdentifierRequired = "Either email or username must be provided"
	msgPasswordTooShort   = "Password must be at least 6 characters"
	msgRoleChangeDenied   = "Only admins can change role or department"
)

var userPreloads = []string{"Department"}

// PasswordHasher turns plain passwords into stored hashes and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// UserCreate is the input of CreateUser. An empty Role means normal.
type UserCreate struct {
	Email          *string
	Username       *string
	Password       string
	Description    string
	ProfilePicture string
	Role           models.Role
	DepartmentID   uint
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Email          *string
	Username       *string
	Password       *string
	Description    *string
	ProfilePicture *string
	Role           *models.Role
	DepartmentID   *uint
}

// UserWithBookings pairs a user with the number of bookings they hold.
type UserWithBookings struct {
	models.User
	SlotBooked int64
}

type UserService struct {
	db     *gorm.DB
	az     authz.Authorizer
	hasher PasswordHasher
}

func NewUserService(db *gorm.DB, az authz.Authorizer, hasher PasswordHasher) *UserService {
	return &UserService{db: db, az: az, hasher: hasher}
}

func (s *UserService) GetUsers(ctx context.Context, actor authz.Actor, p Pagination) (Page[models.User], error) {
	if err := authz.Require(s.az, actor, authz.UserReadAll); err != nil {
		return Page[models.User]{}, err
	}
	return paginate[models.User](s.db.WithContext(ctx).Model(&models.User{}), p, userPreloads...)
}

func (s *UserService) GetUser(ctx context.Context, actor authz.Actor, id uint) (*UserWithBookings, error) {
	if err := authz.RequireOwner(s.az, actor, authz.UserRead, id); err != nil {
		return nil, err
	}
	return s.withBookings(ctx, id)
}

func (s *UserService) GetUsersByDepartment(ctx context.Context, actor authz.Actor, departmentID uint, p Pagination) (Page[models.User], error) {
	if err := authz.Require(s.az, actor, authz.UserRead); err != nil {
		return Page[models.User]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("department_id = ?", departmentID)
	return paginate[models.User](q, p, userPreloads...)
}

func (s *UserService) GetUsersByRole(ctx context.Context, actor authz.Actor, role models.Role, p Pagination) (Page[models.User], error) {
	if err := authz.Require(s.az, actor, authz.UserReadAll); err != nil {
		return Page[models.User]{}, err
	}
	if !role.Valid() {
		return Page[models.User]{}, apperr.Validation(fmt.Sprintf("Invalid role: %s", role))
	}
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role)
	return paginate[models.User](q, p, userPreloads...)
}

func (s *UserService) CreateUser(ctx context.Context, actor authz.Actor, in UserCreate) (*UserWithBookings, error) {
	if err := authz.Require(s.az, actor, authz.UserCreate); err != nil {
		return nil, err
	}
	email, username := trimmed(in.Email), trimmed(in.Username)
	if email == nil && username == nil {
		return nil, apperr.Validation(msgIdentifierRequired)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.Validation(msgPasswordTooShort)
	}
	role := in.Role
	if role == "" {
		role = models.RoleNormal
	}
	if !role.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid role: %s", role))
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := first[models.Department](tx, in.DepartmentID, msgDepartmentNotFound); err != nil {
			return err
		}
		if err := checkIdentifiers(tx, email, username, 0); err != nil {
			return err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user = models.User{
			Email:          email,
			Username:       username,
			PasswordHash:   hash,
			Description:    in.Description,
			ProfilePicture: in.ProfilePicture,
			Role:           role,
			DepartmentID:   in.DepartmentID,
		}
		return identifierConflict(tx.Create(&user).Error, email)
	})
	if err != nil {
		return nil, err
	}
	return s.withBookings(ctx, user.ID)
}

// UpdateUser applies a partial update. Only admins may move a user to another
// department or change a role.
func (s *UserService) UpdateUser(ctx context.Context, actor authz.Actor, id uint, in UserUpdate) (*UserWithBookings, error) {
	if err := authz.RequireOwner(s.az, actor, authz.UserUpdate, id); err != nil {
		return nil, err
	}
	if in.Password != nil && len(*in.Password) < MinPasswordLength {
		return nil, apperr.Validation(msgPasswordTooShort)
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid role: %s", *in.Role))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := first[models.User](tx, id, msgUserNotFound)
		if err != nil {
			return err
		}

		roleChange := in.Role != nil && *in.Role != user.Role
		deptChange := in.DepartmentID != nil && *in.DepartmentID != user.DepartmentID
		if (roleChange || deptChange) && !actor.IsAdmin() {
			return apperr.Forbidden(msgRoleChangeDenied)
		}
		if deptChange {
			if _, err := first[models.Department](tx, *in.DepartmentID, msgDepartmentNotFound); err != nil {
				return err
			}
			user.DepartmentID = *in.DepartmentID
		}
		if roleChange {
			user.Role = *in.Role
		}

		// Empty strings clear an identifier.
		var newEmail, newUsername *string
		if in.Email != nil {
			user.Email = trimmed(in.Email)
			newEmail = user.Email
		}
		if in.Username != nil {
			user.Username = trimmed(in.Username)
			newUsername = user.Username
		}
		if user.Email == nil && user.Username == nil {
			return apperr.Validation(msgIdentifierRequired)
		}
		if err := checkIdentifiers(tx, newEmail, newUsername, user.ID); err != nil {
			return err
		}

		if in.Password != nil {
			hash, err := s.hasher.Hash(*in.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user.PasswordHash = hash
		}
		if in.Description != nil {
			user.Description = *in.Description
		}
		if in.ProfilePicture != nil {
			user.ProfilePicture = *in.ProfilePicture
		}

		return identifierConflict(tx.Save(user).Error, newEmail)
	})
	if err != nil {
		return nil, err
	}
	return s.withBookings(ctx, id)
}

// DeleteUser removes a user together with their bookings.
func (s *UserService) DeleteUser(ctx context.Context, actor authz.Actor, id uint) error {
	if err := authz.Require(s.az, actor, authz.UserDelete); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := first[models.User](tx, id, msgUserNotFound)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Booking{}).Error; err != nil {
			return fmt.Errorf("delete user bookings: %w", err)
		}
		return tx.Delete(user).Error
	})
}

func (s *UserService) withBookings(ctx context.Context, id uint) (*UserWithBookings, error) {
	return loadUserWithBookings(s.db.WithContext(ctx), id)
}

func loadUserWithBookings(db *gorm.DB, id uint) (*UserWithBookings, error) {
	user, err := first[models.User](db, id, msgUserNotFound, userPreloads...)
	if err != nil {
		return nil, err
	}
	var n int64
	if err := db.Model(&models.Booking{}).Where("user_id = ?", id).Count(&n).Error; err != nil {
		return nil, err
	}
	return &UserWithBookings{User: *user, SlotBooked: n}, nil
}

// checkIdentifiers rejects an email or username already used by another user.
func checkIdentifiers(tx *gorm.DB, email, username *string, selfID uint) error {
	if email != nil {
		taken, err := exists(tx, &models.User{}, "email = ? AND id <> ?", *email, selfID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(msgEmailTaken)
		}
	}
	if username != nil {
		taken, err := exists(tx, &models.User{}, "username = ? AND id <> ?", *username, selfID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(msgUsernameTaken)
		}
	}
	return nil
}

// identifierConflict maps a unique violation raced past checkIdentifiers.
func identifierConflict(err error, email *string) error {
	if email != nil {
		return conflictOnDuplicate(err, msgEmailTaken)
	}
	return conflictOnDuplicate(err, msgUsernameTaken)
}
