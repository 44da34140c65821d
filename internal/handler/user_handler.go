package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/models"
	"slotbooking/backend/internal/service"
)

// region --- DTOs ---

type UserCreateInput struct {
	Email          *string `json:"email" binding:"omitempty,email" example:"alice@example.com"`
	Username       *string `json:"username" example:"alice"`
	Password       string  `json:"password" binding:"required,min=6"`
	Description    string  `json:"description"`
	ProfilePicture string  `json:"profile_picture"`
	Role           string  `json:"role" example:"normal"`
	DepartmentID   uint    `json:"department_id" binding:"required"`
}

type UserUpdateInput struct {
	Email          *string `json:"email" binding:"omitempty,email"`
	Username       *string `json:"username"`
	Password       *string `json:"password"`
	Description    *string `json:"description"`
	ProfilePicture *string `json:"profile_picture"`
	Role           *string `json:"role"`
	DepartmentID   *uint   `json:"department_id"`
}

// UserSummary is the public part of a user embedded in other responses.
type UserSummary struct {
	ID       uint    `json:"id" example:"1"`
	Email    *string `json:"email" example:"alice@example.com"`
	Username *string `json:"username" example:"alice"`
	Role     string  `json:"role" example:"normal"`
}

type UserResponse struct {
	ID             uint                `json:"id" example:"1"`
	Email          *string             `json:"email" example:"alice@example.com"`
	Username       *string             `json:"username" example:"alice"`
	Description    string              `json:"description"`
	ProfilePicture string              `json:"profile_picture"`
	Role           string              `json:"role" example:"normal"`
	DepartmentID   uint                `json:"department_id" example:"1"`
	Department     *DepartmentResponse `json:"department,omitempty"`
	SlotBooked     *int64              `json:"slot_booked,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func newUserSummary(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Username: u.Username, Role: string(u.Role)}
}

func newUserResponse(u models.User) UserResponse {
	resp := UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Description:    u.Description,
		ProfilePicture: u.ProfilePicture,
		Role:           string(u.Role),
		DepartmentID:   u.DepartmentID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if u.Department != nil {
		dept := newDepartmentResponse(service.DepartmentWithCount{Department: *u.Department})
		dept.UserCount = nil
		resp.Department = &dept
	}
	return resp
}

func newUserDetailResponse(u service.UserWithBookings) UserResponse {
	resp := newUserResponse(u.User)
	n := u.SlotBooked
	resp.SlotBooked = &n
	return resp
}

// endregion

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetUsers godoc
// @Summary      List users
// @Description  Gets a paginated list of all users. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /users [get]
func (h *UserHandler) GetUsers(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.users.GetUsers(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newUserResponse))
}

// GetUser godoc
// @Summary      Get a user
// @Description  Gets a user profile. Users may only read their own profile unless admin.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "User ID"
// @Success      200 {object} UserResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserDetailResponse(*user))
}

// GetUsersByDepartment godoc
// @Summary      List users of a department
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int true  "Department ID"
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[UserResponse]
// @Router       /users/department/{id} [get]
func (h *UserHandler) GetUsersByDepartment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.users.GetUsersByDepartment(c.Request.Context(), currentActor(c), id, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newUserResponse))
}

// GetUsersByRole godoc
// @Summary      List users with a role
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role  path  string true  "Role (admin or normal)"
// @Param        skip  query int    false "Items to skip" default(0)
// @Param        limit query int    false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[UserResponse]
// @Router       /users/role/{role} [get]
func (h *UserHandler) GetUsersByRole(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.users.GetUsersByRole(c.Request.Context(), currentActor(c), models.Role(c.Param("role")), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newUserResponse))
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Creates a user. Admin only. Either email or username is required.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UserCreateInput true "User Info"
// @Success      201 {object} UserResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Email or username taken"
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var input UserCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), currentActor(c), service.UserCreate{
		Email:          input.Email,
		Username:       input.Username,
		Password:       input.Password,
		Description:    input.Description,
		ProfilePicture: input.ProfilePicture,
		Role:           models.Role(input.Role),
		DepartmentID:   input.DepartmentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserDetailResponse(*user))
}

// UpdateUser godoc
// @Summary      Update a user
// @Description  Partially updates a user. Only admins may change role or department.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int             true "User ID"
// @Param        input body UserUpdateInput true "Fields to change"
// @Success      200 {object} UserResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input UserUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	upd := service.UserUpdate{
		Email:          input.Email,
		Username:       input.Username,
		Password:       input.Password,
		Description:    input.Description,
		ProfilePicture: input.ProfilePicture,
		DepartmentID:   input.DepartmentID,
	}
	if input.Role != nil {
		role := models.Role(*input.Role)
		upd.Role = &role
	}
	user, err := h.users.UpdateUser(c.Request.Context(), currentActor(c), id, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserDetailResponse(*user))
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Deletes a user and their bookings. Admin only.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "User ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}
