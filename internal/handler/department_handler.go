package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/service"
)

// region --- DTOs ---

type DepartmentInput struct {
	Title       string `json:"title" binding:"required" example:"General"`
	Description string `json:"description"`
}

type DepartmentUpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type DepartmentResponse struct {
	ID          uint      `json:"id" example:"1"`
	Title       string    `json:"title" example:"General"`
	Description string    `json:"description"`
	UserCount   *int64    `json:"user_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newDepartmentResponse(d service.DepartmentWithCount) DepartmentResponse {
	n := d.UserCount
	return DepartmentResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		UserCount:   &n,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// endregion

type DepartmentHandler struct {
	departments *service.DepartmentService
}

func NewDepartmentHandler(departments *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

// GetDepartments godoc
// @Summary      List departments
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[DepartmentResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /departments [get]
func (h *DepartmentHandler) GetDepartments(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.departments.GetDepartments(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newDepartmentResponse))
}

// GetDepartment godoc
// @Summary      Get a department
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Department ID"
// @Success      200 {object} DepartmentResponse
// @Failure      404 {object} ErrorResponse
// @Router       /departments/{id} [get]
func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	dept, err := h.departments.GetDepartment(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDepartmentResponse(*dept))
}

// CreateDepartment godoc
// @Summary      Create a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body DepartmentInput true "Department Info"
// @Success      201 {object} DepartmentResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Title taken"
// @Router       /departments [post]
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var input DepartmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	dept, err := h.departments.CreateDepartment(c.Request.Context(), currentActor(c), service.DepartmentCreate{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDepartmentResponse(*dept))
}

// UpdateDepartment godoc
// @Summary      Update a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int                   true "Department ID"
// @Param        input body DepartmentUpdateInput true "Fields to change"
// @Success      200 {object} DepartmentResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /departments/{id} [put]
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input DepartmentUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	dept, err := h.departments.UpdateDepartment(c.Request.Context(), currentActor(c), id, service.DepartmentUpdate{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDepartmentResponse(*dept))
}

// DeleteDepartment godoc
// @Summary      Delete a department
// @Description  Fails with 409 while the department still has users.
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Department ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /departments/{id} [delete]
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.departments.DeleteDepartment(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Department deleted successfully"})
}
