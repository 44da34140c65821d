package service

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/models"
)

const (
	msgGameTitleTaken   = "Game with this title already exists"
	msgGameHasSlots     = "Cannot delete game with existing slots. Please delete slots first."
	msgGameTitleMissing = "Game title is required"
)

type GameCreate struct {
	Title       string
	Description string
	Background  string
}

type GameUpdate struct {
	Title       *string
	Description *string
	Background  *string
}

type GameService struct {
	db *gorm.DB
	az authz.Authorizer
}

func NewGameService(db *gorm.DB, az authz.Authorizer) *GameService {
	return &GameService{db: db, az: az}
}

func (s *GameService) GetGames(ctx context.Context, actor authz.Actor, p Pagination) (Page[models.Game], error) {
	if err := authz.Require(s.az, actor, authz.GameRead); err != nil {
		return Page[models.Game]{}, err
	}
	return paginate[models.Game](s.db.WithContext(ctx).Model(&models.Game{}), p)
}

// GetGamesWithAvailableSlots lists games owning at least one slot that is not full.
func (s *GameService) GetGamesWithAvailableSlots(ctx context.Context, actor authz.Actor, p Pagination) (Page[models.Game], error) {
	if err := authz.Require(s.az, actor, authz.GameRead); err != nil {
		return Page[models.Game]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.Game{}).
		Where(`EXISTS (SELECT 1 FROM slots WHERE slots.game_id = games.id
			AND (SELECT COUNT(*) FROM bookings WHERE bookings.slot_id = slots.id) < slots.capacity)`)
	return paginate[models.Game](q, p)
}

func (s *GameService) GetGame(ctx context.Context, actor authz.Actor, id uint) (*models.Game, error) {
	if err := authz.Require(s.az, actor, authz.GameRead); err != nil {
		return nil, err
	}
	return first[models.Game](s.db.WithContext(ctx), id, msgGameNotFound)
}

func (s *GameService) CreateGame(ctx context.Context, actor authz.Actor, in GameCreate) (*models.Game, error) {
	if err := authz.Require(s.az, actor, authz.GameCreate); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation(msgGameTitleMissing)
	}

	game := models.Game{Title: title, Description: in.Description, Background: in.Background}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.Game{}, "title = ?", title)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(msgGameTitleTaken)
		}
		return conflictOnDuplicate(tx.Create(&game).Error, msgGameTitleTaken)
	})
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *GameService) UpdateGame(ctx context.Context, actor authz.Actor, id uint, in GameUpdate) (*models.Game, error) {
	if err := authz.Require(s.az, actor, authz.GameUpdate); err != nil {
		return nil, err
	}

	var game *models.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		game, err = first[models.Game](tx, id, msgGameNotFound)
		if err != nil {
			return err
		}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return apperr.Validation(msgGameTitleMissing)
			}
			if title != game.Title {
				taken, err := exists(tx, &models.Game{}, "title = ? AND id <> ?", title, game.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict(msgGameTitleTaken)
				}
			}
			game.Title = title
		}
		if in.Description != nil {
			game.Description = *in.Description
		}
		if in.Background != nil {
			game.Background = *in.Background
		}
		return conflictOnDuplicate(tx.Save(game).Error, msgGameTitleTaken)
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

func (s *GameService) DeleteGame(ctx context.Context, actor authz.Actor, id uint) error {
	if err := authz.Require(s.az, actor, authz.GameDelete); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		game, err := first[models.Game](tx, id, msgGameNotFound)
		if err != nil {
			return err
		}
		owned, err := exists(tx, &models.Slot{}, "game_id = ?", game.ID)
		if err != nil {
			return err
		}
		if owned {
			return apperr.Conflict(msgGameHasSlots)
		}
		return tx.Delete(game).Error
	})
}
