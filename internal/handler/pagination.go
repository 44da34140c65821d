package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/service"
)

// PaginationMeta defines the structure for pagination metadata.
type PaginationMeta struct {
	TotalItems int64 `json:"total_items"`
	Skip       int   `json:"skip"`
	Limit      int   `json:"limit"`
}

// PaginatedResponse defines the structure for a paginated list of any type.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse converts a service page with build.
func NewPaginatedResponse[M, T any](page service.Page[M], build func(M) T) PaginatedResponse[T] {
	data := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		data = append(data, build(item))
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{TotalItems: page.Total, Skip: page.Skip, Limit: page.Limit},
	}
}

// parsePagination reads ?skip= and ?limit=, defaulting to 0 and 100.
func parsePagination(c *gin.Context) (service.Pagination, error) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		return service.Pagination{}, apperr.Validation("skip must be an integer")
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultLimit)))
	if err != nil {
		return service.Pagination{}, apperr.Validation("limit must be an integer")
	}
	if limit == 0 {
		return service.Pagination{}, apperr.Validation("limit must be between 1 and 1000")
	}
	return service.NewPagination(skip, limit)
}
