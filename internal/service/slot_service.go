package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/capacity"
	"slotbooking/backend/internal/models"
)

const (
	msgGameNotFound      = "Game not found"
	msgInvalidSlotTime   = "Start time must be before end time"
	msgInvalidCapacity   = "Capacity must be at least 1"
	msgSlotOverlap       = "Slot time overlaps with existing slots for this game"
	msgSlotTimeLocked    = "Cannot modify time of slot with existing bookings"
	msgSlotHasBookings   = "Cannot delete slot with existing bookings. Please cancel bookings first."
	msgInvalidDateWindow = "Start date must be before end date"
)

var slotPreloads = []string{"Game", "Bookings"}

// SlotCreate is the input of CreateSlot. A nil Capacity means the default.
type SlotCreate struct {
	StartTime time.Time
	EndTime   time.Time
	Capacity  *int
	GameID    uint
}

// SlotUpdate is a partial update; nil fields are left untouched.
type SlotUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Capacity  *int
	GameID    *uint
}

type SlotService struct {
	db *gorm.DB
	az authz.Authorizer
}

func NewSlotService(db *gorm.DB, az authz.Authorizer) *SlotService {
	return &SlotService{db: db, az: az}
}

func (s *SlotService) GetSlots(ctx context.Context, actor authz.Actor, p Pagination) (Page[models.Slot], error) {
	if err := authz.Require(s.az, actor, authz.SlotRead); err != nil {
		return Page[models.Slot]{}, err
	}
	return paginate[models.Slot](s.db.WithContext(ctx).Model(&models.Slot{}), p, slotPreloads...)
}

func (s *SlotService) GetSlot(ctx context.Context, actor authz.Actor, id uint) (*models.Slot, error) {
	if err := authz.Require(s.az, actor, authz.SlotRead); err != nil {
		return nil, err
	}
	return first[models.Slot](s.db.WithContext(ctx), id, msgSlotNotFound, slotPreloads...)
}

func (s *SlotService) GetSlotsByGame(ctx context.Context, actor authz.Actor, gameID uint, p Pagination) (Page[models.Slot], error) {
	if err := authz.Require(s.az, actor, authz.SlotRead); err != nil {
		return Page[models.Slot]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Slot{}).Where("game_id = ?", gameID)
	return paginate[models.Slot](q, p, slotPreloads...)
}

// GetAvailableSlots lists slots that are not full.
func (s *SlotService) GetAvailableSlots(ctx context.Context, actor authz.Actor, p Pagination) (Page[models.Slot], error) {
	if err := authz.Require(s.az, actor, authz.SlotRead); err != nil {
		return Page[models.Slot]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Slot{}).Scopes(capacity.WithFreePlaces)
	return paginate[models.Slot](q, p, slotPreloads...)
}

// GetSlotsByDateRange lists slots lying entirely inside [start, end].
func (s *SlotService) GetSlotsByDateRange(ctx context.Context, actor authz.Actor, start, end time.Time, p Pagination) (Page[models.Slot], error) {
	if err := authz.Require(s.az, actor, authz.SlotRead); err != nil {
		return Page[models.Slot]{}, err
	}
	if !start.Before(end) {
		return Page[models.Slot]{}, apperr.Validation(msgInvalidDateWindow)
	}
	q := s.db.WithContext(ctx).Model(&models.Slot{}).
		Where("start_time >= ? AND end_time <= ?", start.UTC(), end.UTC())
	return paginate[models.Slot](q, p, slotPreloads...)
}

func (s *SlotService) CreateSlot(ctx context.Context, actor authz.Actor, in SlotCreate) (*models.Slot, error) {
	if err := authz.Require(s.az, actor, authz.SlotCreate); err != nil {
		return nil, err
	}
	slotCapacity := models.DefaultSlotCapacity
	if in.Capacity != nil {
		slotCapacity = *in.Capacity
	}
	iv := capacity.Interval{Start: in.StartTime, End: in.EndTime}.UTC()

	var slot models.Slot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := first[models.Game](forUpdate(tx), in.GameID, msgGameNotFound); err != nil {
			return err
		}
		if !iv.Valid() {
			return apperr.Validation(msgInvalidSlotTime)
		}
		if slotCapacity < 1 {
			return apperr.Validation(msgInvalidCapacity)
		}
		overlap, err := capacity.HasOverlap(ctx, tx, in.GameID, iv, nil)
		if err != nil {
			return err
		}
		if overlap {
			return overlapConflict(ctx, tx, in.GameID, iv, nil)
		}

		slot = models.Slot{StartTime: iv.Start, EndTime: iv.End, Capacity: slotCapacity, GameID: in.GameID}
		return tx.Create(&slot).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, slot.ID)
}

// UpdateSlot merges in onto the stored slot and re-validates the result.
// Times are frozen once the slot holds bookings.
func (s *SlotService) UpdateSlot(ctx context.Context, actor authz.Actor, id uint, in SlotUpdate) (*models.Slot, error) {
	if err := authz.Require(s.az, actor, authz.SlotUpdate); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := first[models.Slot](forUpdate(tx), id, msgSlotNotFound)
		if err != nil {
			return err
		}

		merged := capacity.SlotInterval(*slot).UTC()
		timeChanged := false
		if in.StartTime != nil && !in.StartTime.Equal(slot.StartTime) {
			merged.Start = in.StartTime.UTC()
			timeChanged = true
		}
		if in.EndTime != nil && !in.EndTime.Equal(slot.EndTime) {
			merged.End = in.EndTime.UTC()
			timeChanged = true
		}
		if timeChanged {
			n, err := capacity.CountBookings(ctx, tx, slot.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Conflict(msgSlotTimeLocked)
			}
		}

		gameID := slot.GameID
		if in.GameID != nil && *in.GameID != slot.GameID {
			if _, err := first[models.Game](forUpdate(tx), *in.GameID, msgGameNotFound); err != nil {
				return err
			}
			gameID = *in.GameID
		}
		if !merged.Valid() {
			return apperr.Validation(msgInvalidSlotTime)
		}
		slotCapacity := slot.Capacity
		if in.Capacity != nil {
			if *in.Capacity < 1 {
				return apperr.Validation(msgInvalidCapacity)
			}
			slotCapacity = *in.Capacity
		}

		if timeChanged || gameID != slot.GameID {
			overlap, err := capacity.HasOverlap(ctx, tx, gameID, merged, &slot.ID)
			if err != nil {
				return err
			}
			if overlap {
				return overlapConflict(ctx, tx, gameID, merged, &slot.ID)
			}
		}

		return tx.Model(slot).Updates(map[string]any{
			"start_time": merged.Start,
			"end_time":   merged.End,
			"capacity":   slotCapacity,
			"game_id":    gameID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *SlotService) DeleteSlot(ctx context.Context, actor authz.Actor, id uint) error {
	if err := authz.Require(s.az, actor, authz.SlotDelete); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := first[models.Slot](forUpdate(tx), id, msgSlotNotFound)
		if err != nil {
			return err
		}
		n, err := capacity.CountBookings(ctx, tx, slot.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict(msgSlotHasBookings)
		}
		return tx.Delete(slot).Error
	})
}

// overlapConflict names the first slot that clashes with candidate.
func overlapConflict(ctx context.Context, tx *gorm.DB, gameID uint, candidate capacity.Interval, excludeSlotID *uint) error {
	clashes, err := capacity.Overlapping(ctx, tx, gameID, candidate, excludeSlotID)
	if err != nil {
		return fmt.Errorf("load overlapping slots: %w", err)
	}
	if len(clashes) == 0 {
		return apperr.Conflict(msgSlotOverlap)
	}
	c := clashes[0]
	return apperr.Conflict(fmt.Sprintf("%s (%s - %s)", msgSlotOverlap, c.Start.UTC().Format(time.RFC3339), c.End.UTC().Format(time.RFC3339)))
}

func (s *SlotService) reload(ctx context.Context, id uint) (*models.Slot, error) {
	return first[models.Slot](s.db.WithContext(ctx), id, msgSlotNotFound, slotPreloads...)
}
