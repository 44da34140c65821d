package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/capacity"
	"slotbooking/backend/internal/models"
)

const (
	msgBookingNotFound   = "Booking not found"
	msgSlotNotFound      = "Slot not found"
	msgUserNotFound      = "User not found"
	msgSlotFull          = "Slot is already full"
	msgDuplicateBooking  = "User already has a booking for this slot"
	msgAlreadyCancelled  = "Booking is already cancelled"
	msgAlreadyConfirmed  = "Booking is already confirmed"
	msgFullAtConfirm     = "Slot is now full, cannot confirm booking"
	msgNoBookingsToReset = "No bookings found for today"
)

var bookingPreloads = []string{"User", "Slot.Game"}

// BookingCreate is the input of CreateBooking. An empty Status means CONFIRMED.
type BookingCreate struct {
	UserID uint
	SlotID uint
	Status models.BookingStatus
}

// BookingUpdate is a partial update; nil fields are left untouched.
type BookingUpdate struct {
	Status *models.BookingStatus
}

// ResetResult reports what ResetCurrentDayBookings removed.
type ResetResult struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
	Date         string `json:"date"`
}

// BookingService owns the booking lifecycle.
type BookingService struct {
	db       *gorm.DB
	az       authz.Authorizer
	notifier Notifier
	now      func() time.Time
}

func NewBookingService(db *gorm.DB, az authz.Authorizer, notifier Notifier) *BookingService {
	return &BookingService{db: db, az: az, notifier: notifier, now: time.Now}
}

func (s *BookingService) GetBookings(ctx context.Context, actor authz.Actor, p Pagination) (Page[models.Booking], error) {
	if err := authz.Require(s.az, actor, authz.BookingReadAll); err != nil {
		return Page[models.Booking]{}, err
	}
	return paginate[models.Booking](s.db.WithContext(ctx).Model(&models.Booking{}), p, bookingPreloads...)
}

func (s *BookingService) GetBooking(ctx context.Context, actor authz.Actor, id uint) (*models.Booking, error) {
	if err := authz.Require(s.az, actor, authz.BookingRead); err != nil {
		return nil, err
	}
	b, err := first[models.Booking](s.db.WithContext(ctx), id, msgBookingNotFound, bookingPreloads...)
	if err != nil {
		return nil, err
	}
	if !s.az.CanAccess(actor, b.UserID) {
		return nil, apperr.Forbidden("Access denied")
	}
	return b, nil
}

func (s *BookingService) GetBookingsByUser(ctx context.Context, actor authz.Actor, userID uint, p Pagination) (Page[models.Booking], error) {
	if err := authz.RequireOwner(s.az, actor, authz.BookingRead, userID); err != nil {
		return Page[models.Booking]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Booking{}).Where("user_id = ?", userID)
	return paginate[models.Booking](q, p, bookingPreloads...)
}

// GetUserActiveBookings lists the CONFIRMED bookings of userID.
func (s *BookingService) GetUserActiveBookings(ctx context.Context, actor authz.Actor, userID uint, p Pagination) (Page[models.Booking], error) {
	if err := authz.RequireOwner(s.az, actor, authz.BookingRead, userID); err != nil {
		return Page[models.Booking]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("user_id = ? AND status = ?", userID, models.BookingConfirmed)
	return paginate[models.Booking](q, p, bookingPreloads...)
}

func (s *BookingService) GetBookingsBySlot(ctx context.Context, actor authz.Actor, slotID uint, p Pagination) (Page[models.Booking], error) {
	if err := authz.Require(s.az, actor, authz.BookingReadAll); err != nil {
		return Page[models.Booking]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Booking{}).Where("slot_id = ?", slotID)
	return paginate[models.Booking](q, p, bookingPreloads...)
}

func (s *BookingService) GetBookingsByStatus(ctx context.Context, actor authz.Actor, status models.BookingStatus, p Pagination) (Page[models.Booking], error) {
	if err := authz.Require(s.az, actor, authz.BookingReadAll); err != nil {
		return Page[models.Booking]{}, err
	}
	if !status.Valid() {
		return Page[models.Booking]{}, apperr.Validation(fmt.Sprintf("Invalid booking status: %s", status))
	}
	q := s.db.WithContext(ctx).Model(&models.Booking{}).Where("status = ?", status)
	return paginate[models.Booking](q, p, bookingPreloads...)
}

// CreateBooking reserves a place in a slot. The slot row stays locked until
// the transaction ends so concurrent requests see each other's bookings.
func (s *BookingService) CreateBooking(ctx context.Context, actor authz.Actor, in BookingCreate) (*models.Booking, error) {
	if err := authz.RequireOwner(s.az, actor, authz.BookingCreate, in.UserID); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.BookingConfirmed
	}
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid booking status: %s", status))
	}

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := first[models.User](tx, in.UserID, msgUserNotFound); err != nil {
			return err
		}
		slot, err := first[models.Slot](forUpdate(tx), in.SlotID, msgSlotNotFound)
		if err != nil {
			return err
		}
		bookings, err := capacity.SlotBookings(ctx, tx, slot.ID)
		if err != nil {
			return fmt.Errorf("load slot bookings: %w", err)
		}
		if capacity.Compute(slot.Capacity, bookings).IsFull {
			return apperr.Conflict(msgSlotFull)
		}
		if capacity.HasActiveBooking(bookings, in.UserID, 0) {
			return apperr.Conflict(msgDuplicateBooking)
		}

		booking = models.Booking{UserID: in.UserID, SlotID: slot.ID, Status: status}
		if err := tx.Create(&booking).Error; err != nil {
			return conflictOnDuplicate(err, msgDuplicateBooking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventBookingCreated, booking)
	return s.reload(ctx, booking.ID)
}

// UpdateBooking applies a partial update. Reviving a cancelled booking is
// allowed as long as the user holds no other active booking on the slot.
func (s *BookingService) UpdateBooking(ctx context.Context, actor authz.Actor, id uint, in BookingUpdate) (*models.Booking, error) {
	if err := authz.Require(s.az, actor, authz.BookingUpdate); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid booking status: %s", *in.Status))
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = first[models.Booking](forUpdate(tx), id, msgBookingNotFound)
		if err != nil {
			return err
		}
		if !s.az.CanAccess(actor, booking.UserID) {
			return apperr.Forbidden("Access denied")
		}
		if in.Status == nil || *in.Status == booking.Status {
			return nil
		}
		if in.Status.Active() && !booking.Status.Active() {
			bookings, err := capacity.SlotBookings(ctx, tx, booking.SlotID)
			if err != nil {
				return fmt.Errorf("load slot bookings: %w", err)
			}
			if capacity.HasActiveBooking(bookings, booking.UserID, booking.ID) {
				return apperr.Conflict(msgDuplicateBooking)
			}
		}
		booking.Status = *in.Status
		if err := tx.Model(booking).Update("status", booking.Status).Error; err != nil {
			return conflictOnDuplicate(err, msgDuplicateBooking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventBookingUpdated, *booking)
	return s.reload(ctx, booking.ID)
}

func (s *BookingService) CancelBooking(ctx context.Context, actor authz.Actor, id uint) (*models.Booking, error) {
	if err := authz.Require(s.az, actor, authz.BookingUpdate); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = first[models.Booking](forUpdate(tx), id, msgBookingNotFound)
		if err != nil {
			return err
		}
		if !s.az.CanAccess(actor, booking.UserID) {
			return apperr.Forbidden("Access denied")
		}
		if booking.Status == models.BookingCancelled {
			return apperr.Conflict(msgAlreadyCancelled)
		}
		booking.Status = models.BookingCancelled
		return tx.Model(booking).Update("status", booking.Status).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventBookingCancelled, *booking)
	return s.reload(ctx, booking.ID)
}

// ConfirmBooking re-checks capacity against every booking row on the slot,
// the one being confirmed included.
func (s *BookingService) ConfirmBooking(ctx context.Context, actor authz.Actor, id uint) (*models.Booking, error) {
	if err := authz.Require(s.az, actor, authz.BookingConfirm); err != nil {
		return nil, err
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = first[models.Booking](forUpdate(tx), id, msgBookingNotFound)
		if err != nil {
			return err
		}
		if booking.Status == models.BookingConfirmed {
			return apperr.Conflict(msgAlreadyConfirmed)
		}
		slot, err := first[models.Slot](forUpdate(tx), booking.SlotID, msgSlotNotFound)
		if err != nil {
			return err
		}
		n, err := capacity.CountBookings(ctx, tx, slot.ID)
		if err != nil {
			return fmt.Errorf("count slot bookings: %w", err)
		}
		if capacity.FromCounts(slot.Capacity, int(n), 0).IsFull {
			return apperr.Conflict(msgFullAtConfirm)
		}
		booking.Status = models.BookingConfirmed
		if err := tx.Model(booking).Update("status", booking.Status).Error; err != nil {
			return conflictOnDuplicate(err, msgDuplicateBooking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventBookingConfirmed, *booking)
	return s.reload(ctx, booking.ID)
}

func (s *BookingService) DeleteBooking(ctx context.Context, actor authz.Actor, id uint) error {
	if err := authz.Require(s.az, actor, authz.BookingDelete); err != nil {
		return err
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = first[models.Booking](tx, id, msgBookingNotFound)
		if err != nil {
			return err
		}
		return tx.Delete(booking).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EventBookingDeleted, *booking)
	return nil
}

// ResetCurrentDayBookings deletes every booking whose slot starts on the
// current UTC calendar day.
func (s *BookingService) ResetCurrentDayBookings(ctx context.Context, actor authz.Actor) (*ResetResult, error) {
	if err := authz.Require(s.az, actor, authz.BookingReset); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	result := &ResetResult{Date: dayStart.Format(time.DateOnly)}

	var doomed []models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		todaysSlots := tx.Model(&models.Slot{}).Select("id").
			Where("start_time >= ? AND start_time < ?", dayStart, dayEnd)
		if err := tx.Where("slot_id IN (?)", todaysSlots).Order("id").Find(&doomed).Error; err != nil {
			return fmt.Errorf("find today's bookings: %w", err)
		}
		if len(doomed) == 0 {
			return nil
		}

		ids := make([]uint, len(doomed))
		for i, b := range doomed {
			ids[i] = b.ID
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Booking{})
		if res.Error != nil {
			return res.Error
		}
		result.DeletedCount = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.DeletedCount == 0 {
		result.Message = msgNoBookingsToReset
		return result, nil
	}
	result.Message = fmt.Sprintf("Successfully deleted %d bookings for today", result.DeletedCount)
	for _, b := range doomed {
		s.publish(ctx, EventBookingDeleted, b)
	}
	return result, nil
}

// WatchSlot checks that actor may follow booking events of slotID and returns
// the events it may see. Only readers of all bookings see other users' events.
func (s *BookingService) WatchSlot(ctx context.Context, actor authz.Actor, slotID uint) (EventScope, error) {
	if err := authz.Require(s.az, actor, authz.BookingRead); err != nil {
		return EventScope{}, err
	}
	if _, err := first[models.Slot](s.db.WithContext(ctx), slotID, msgSlotNotFound); err != nil {
		return EventScope{}, err
	}
	return EventScope{UserID: actor.ID, All: s.az.HasPermission(actor, authz.BookingReadAll)}, nil
}

func (s *BookingService) reload(ctx context.Context, id uint) (*models.Booking, error) {
	return first[models.Booking](s.db.WithContext(ctx), id, msgBookingNotFound, bookingPreloads...)
}

func (s *BookingService) publish(ctx context.Context, typ string, b models.Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, newBookingEvent(typ, b, s.now())); err != nil {
		log.Printf("[booking] publish %s for booking %d: %v", typ, b.ID, err)
	}
}
