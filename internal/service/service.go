// Package service implements the booking domain operations. Every exported
// method takes the acting user, checks it against the Authorizer and runs its
// writes inside a single transaction.
package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slotbooking/backend/internal/apperr"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Pagination selects a window of an id-ordered collection.
type Pagination struct {
	Skip  int
	Limit int
}

// NewPagination validates skip and limit. A zero limit means DefaultLimit.
func NewPagination(skip, limit int) (Pagination, error) {
	if skip < 0 {
		return Pagination{}, apperr.Validation("skip must be greater than or equal to 0")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return Pagination{}, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	return Pagination{Skip: skip, Limit: limit}, nil
}

func (p Pagination) normalized() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	return p
}

// Page is one window of a collection plus the size of the whole collection.
type Page[T any] struct {
	Items []T
	Total int64
	Skip  int
	Limit int
}

// paginate counts the rows matched by q and loads one window ordered by id.
func paginate[T any](q *gorm.DB, p Pagination, preloads ...string) (Page[T], error) {
	p = p.normalized()
	base := q.Session(&gorm.Session{})

	var total int64
	if err := base.Model(new(T)).Count(&total).Error; err != nil {
		return Page[T]{}, err
	}

	find := base
	for _, rel := range preloads {
		find = find.Preload(rel)
	}
	items := make([]T, 0)
	if err := find.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}}).
		Offset(p.Skip).Limit(p.Limit).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}

	return Page[T]{Items: items, Total: total, Skip: p.Skip, Limit: p.Limit}, nil
}

// forUpdate adds a row lock where the dialect supports it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// first loads one row by id, mapping a missing row to a not-found error.
func first[T any](tx *gorm.DB, id uint, notFound string, preloads ...string) (*T, error) {
	for _, rel := range preloads {
		tx = tx.Preload(rel)
	}
	var row T
	if err := tx.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(notFound)
		}
		return nil, err
	}
	return &row, nil
}

func exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// conflictOnDuplicate maps a unique-index violation to a conflict error.
func conflictOnDuplicate(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(msg)
	}
	return err
}

// trimmed returns nil for nil or blank input and the trimmed value otherwise.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
