package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/models"
	"slotbooking/backend/internal/service"
)

// region --- DTOs ---

type BookingInput struct {
	UserID uint   `json:"user_id" example:"2"`
	SlotID uint   `json:"slot_id" binding:"required" example:"1"`
	Status string `json:"status" example:"CONFIRMED"`
}

type BookingUpdateInput struct {
	Status *string `json:"status" example:"PENDING"`
}

type BookingResponse struct {
	ID        uint          `json:"id" example:"1"`
	UserID    uint          `json:"user_id" example:"2"`
	SlotID    uint          `json:"slot_id" example:"1"`
	Status    string        `json:"status" example:"CONFIRMED"`
	User      *UserSummary  `json:"user,omitempty"`
	Slot      *SlotResponse `json:"slot,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newBookingResponse(b models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		SlotID:    b.SlotID,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.User != nil {
		u := newUserSummary(*b.User)
		resp.User = &u
	}
	if b.Slot != nil {
		s := newSlotBrief(*b.Slot)
		resp.Slot = &s
	}
	return resp
}

// endregion

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// GetBookings godoc
// @Summary      List all bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[BookingResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /bookings [get]
func (h *BookingHandler) GetBookings(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.bookings.GetBookings(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newBookingResponse))
}

// GetBooking godoc
// @Summary      Get a booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Booking not found"
// @Router       /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.GetBooking(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(*booking))
}

// GetBookingsByUser godoc
// @Summary      List bookings of a user
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int true  "User ID"
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[BookingResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /bookings/user/{id} [get]
func (h *BookingHandler) GetBookingsByUser(c *gin.Context) {
	h.listByID(c, h.bookings.GetBookingsByUser)
}

// GetUserActiveBookings godoc
// @Summary      List confirmed bookings of a user
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int true  "User ID"
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[BookingResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /bookings/user/{id}/active [get]
func (h *BookingHandler) GetUserActiveBookings(c *gin.Context) {
	h.listByID(c, h.bookings.GetUserActiveBookings)
}

// GetBookingsBySlot godoc
// @Summary      List bookings of a slot
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int true  "Slot ID"
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[BookingResponse]
// @Failure      403 {object} ErrorResponse
// @Router       /bookings/slot/{id} [get]
func (h *BookingHandler) GetBookingsBySlot(c *gin.Context) {
	h.listByID(c, h.bookings.GetBookingsBySlot)
}

type bookingLister func(ctx context.Context, actor authz.Actor, id uint, p service.Pagination) (service.Page[models.Booking], error)

func (h *BookingHandler) listByID(c *gin.Context, list bookingLister) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := list(c.Request.Context(), currentActor(c), id, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newBookingResponse))
}

// GetBookingsByStatus godoc
// @Summary      List bookings with a status
// @Description  The status is matched case-insensitively.
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        status path  string true  "PENDING, CONFIRMED or CANCELLED"
// @Param        skip   query int    false "Items to skip" default(0)
// @Param        limit  query int    false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[BookingResponse]
// @Failure      400 {object} ErrorResponse "Invalid status"
// @Failure      403 {object} ErrorResponse
// @Router       /bookings/status/{status} [get]
func (h *BookingHandler) GetBookingsByStatus(c *gin.Context) {
	status, err := parseStatus(c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.bookings.GetBookingsByStatus(c.Request.Context(), currentActor(c), status, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newBookingResponse))
}

// CreateBooking godoc
// @Summary      Book a slot
// @Description  user_id defaults to the caller. Status defaults to CONFIRMED.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body BookingInput true "Booking Info"
// @Success      201 {object} BookingResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "User or slot not found"
// @Failure      409 {object} ErrorResponse "Slot full or already booked"
// @Router       /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input BookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	actor := currentActor(c)
	in := service.BookingCreate{UserID: input.UserID, SlotID: input.SlotID}
	if in.UserID == 0 {
		in.UserID = actor.ID
	}
	if input.Status != "" {
		status, err := parseStatus(input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Status = status
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(*booking))
}

// UpdateBooking godoc
// @Summary      Update a booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int                true "Booking ID"
// @Param        input body BookingUpdateInput true "Fields to change"
// @Success      200 {object} BookingResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /bookings/{id} [put]
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input BookingUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	var in service.BookingUpdate
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Status = &status
	}

	booking, err := h.bookings.UpdateBooking(c.Request.Context(), currentActor(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(*booking))
}

// CancelBooking godoc
// @Summary      Cancel a booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already cancelled"
// @Router       /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.CancelBooking(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(*booking))
}

// ConfirmBooking godoc
// @Summary      Confirm a pending booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already confirmed or slot full"
// @Router       /bookings/{id}/confirm [post]
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.ConfirmBooking(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(*booking))
}

// DeleteBooking godoc
// @Summary      Delete a booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /bookings/{id} [delete]
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.bookings.DeleteBooking(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Booking deleted successfully"})
}

// ResetCurrentDayBookings godoc
// @Summary      Delete today's bookings
// @Description  Removes every booking whose slot starts on the current UTC date.
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} service.ResetResult
// @Failure      403 {object} ErrorResponse
// @Router       /bookings/reset-today [post]
func (h *BookingHandler) ResetCurrentDayBookings(c *gin.Context) {
	result, err := h.bookings.ResetCurrentDayBookings(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
