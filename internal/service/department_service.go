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
	msgDepartmentNotFound     = "Department not found"
	msgDepartmentTitleTaken   = "Department with this title already exists"
	msgDepartmentHasUsers     = "Cannot delete department with existing users. Please reassign or delete users first."
	msgDepartmentTitleMissing = "Department title is required"
)

type DepartmentCreate struct {
	Title       string
	Description string
}

type DepartmentUpdate struct {
	Title       *string
	Description *string
}

// DepartmentWithCount pairs a department with the number of its users.
type DepartmentWithCount struct {
	models.Department
	UserCount int64
}

type DepartmentService struct {
	db *gorm.DB
	az authz.Authorizer
}

func NewDepartmentService(db *gorm.DB, az authz.Authorizer) *DepartmentService {
	return &DepartmentService{db: db, az: az}
}

func (s *DepartmentService) GetDepartments(ctx context.Context, actor authz.Actor, p Pagination) (Page[DepartmentWithCount], error) {
	if err := authz.Require(s.az, actor, authz.DepartmentRead); err != nil {
		return Page[DepartmentWithCount]{}, err
	}
	page, err := paginate[models.Department](s.db.WithContext(ctx).Model(&models.Department{}), p)
	if err != nil {
		return Page[DepartmentWithCount]{}, err
	}

	counts, err := s.userCounts(ctx, page.Items)
	if err != nil {
		return Page[DepartmentWithCount]{}, err
	}
	out := Page[DepartmentWithCount]{Items: make([]DepartmentWithCount, len(page.Items)), Total: page.Total, Skip: page.Skip, Limit: page.Limit}
	for i, d := range page.Items {
		out.Items[i] = DepartmentWithCount{Department: d, UserCount: counts[d.ID]}
	}
	return out, nil
}

func (s *DepartmentService) GetDepartment(ctx context.Context, actor authz.Actor, id uint) (*DepartmentWithCount, error) {
	if err := authz.Require(s.az, actor, authz.DepartmentRead); err != nil {
		return nil, err
	}
	return s.withCount(ctx, id)
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, actor authz.Actor, in DepartmentCreate) (*DepartmentWithCount, error) {
	if err := authz.Require(s.az, actor, authz.DepartmentCreate); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation(msgDepartmentTitleMissing)
	}

	dept := models.Department{Title: title, Description: in.Description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.Department{}, "title = ?", title)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(msgDepartmentTitleTaken)
		}
		return conflictOnDuplicate(tx.Create(&dept).Error, msgDepartmentTitleTaken)
	})
	if err != nil {
		return nil, err
	}
	return &DepartmentWithCount{Department: dept}, nil
}

func (s *DepartmentService) UpdateDepartment(ctx context.Context, actor authz.Actor, id uint, in DepartmentUpdate) (*DepartmentWithCount, error) {
	if err := authz.Require(s.az, actor, authz.DepartmentUpdate); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dept, err := first[models.Department](tx, id, msgDepartmentNotFound)
		if err != nil {
			return err
		}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return apperr.Validation(msgDepartmentTitleMissing)
			}
			if title != dept.Title {
				taken, err := exists(tx, &models.Department{}, "title = ? AND id <> ?", title, dept.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict(msgDepartmentTitleTaken)
				}
			}
			dept.Title = title
		}
		if in.Description != nil {
			dept.Description = *in.Description
		}
		return conflictOnDuplicate(tx.Save(dept).Error, msgDepartmentTitleTaken)
	})
	if err != nil {
		return nil, err
	}
	return s.withCount(ctx, id)
}

func (s *DepartmentService) DeleteDepartment(ctx context.Context, actor authz.Actor, id uint) error {
	if err := authz.Require(s.az, actor, authz.DepartmentDelete); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dept, err := first[models.Department](tx, id, msgDepartmentNotFound)
		if err != nil {
			return err
		}
		owned, err := exists(tx, &models.User{}, "department_id = ?", dept.ID)
		if err != nil {
			return err
		}
		if owned {
			return apperr.Conflict(msgDepartmentHasUsers)
		}
		return tx.Delete(dept).Error
	})
}

func (s *DepartmentService) withCount(ctx context.Context, id uint) (*DepartmentWithCount, error) {
	db := s.db.WithContext(ctx)
	dept, err := first[models.Department](db, id, msgDepartmentNotFound)
	if err != nil {
		return nil, err
	}
	var n int64
	if err := db.Model(&models.User{}).Where("department_id = ?", id).Count(&n).Error; err != nil {
		return nil, err
	}
	return &DepartmentWithCount{Department: *dept, UserCount: n}, nil
}

func (s *DepartmentService) userCounts(ctx context.Context, depts []models.Department) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(depts))
	if len(depts) == 0 {
		return counts, nil
	}
	ids := make([]uint, len(depts))
	for i, d := range depts {
		ids[i] = d.ID
	}

	var rows []struct {
		DepartmentID uint
		Count        int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("department_id, COUNT(*) AS count").
		Where("department_id IN ?", ids).
		Group("department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.DepartmentID] = r.Count
	}
	return counts, nil
}
