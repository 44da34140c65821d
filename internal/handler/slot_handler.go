package handler

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/capacity"
	"slotbooking/backend/internal/hub"
	"slotbooking/backend/internal/models"
	"slotbooking/backend/internal/service"
)

// region --- DTOs ---

type SlotInput struct {
	StartTime time.Time `json:"start_time" binding:"required" example:"2025-06-01T10:00:00Z"`
	EndTime   time.Time `json:"end_time" binding:"required" example:"2025-06-01T11:00:00Z"`
	Capacity  *int      `json:"capacity" example:"2"`
	GameID    uint      `json:"game_id" binding:"required" example:"1"`
}

type SlotUpdateInput struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Capacity  *int       `json:"capacity"`
	GameID    *uint      `json:"game_id"`
}

// SlotResponse flattens the slot occupancy next to the slot fields. The
// occupancy is omitted when bookings were not loaded.
type SlotResponse struct {
	ID        uint          `json:"id" example:"1"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Capacity  int           `json:"capacity" example:"2"`
	GameID    uint          `json:"game_id" example:"1"`
	Game      *GameResponse `json:"game,omitempty"`
	*capacity.Occupancy
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newSlotBrief(s models.Slot) SlotResponse {
	resp := SlotResponse{
		ID:        s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Capacity:  s.Capacity,
		GameID:    s.GameID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Game != nil {
		g := newGameResponse(*s.Game)
		resp.Game = &g
	}
	return resp
}

func newSlotResponse(s models.Slot) SlotResponse {
	resp := newSlotBrief(s)
	occ := capacity.Compute(s.Capacity, s.Bookings)
	resp.Occupancy = &occ
	return resp
}

// endregion

type SlotHandler struct {
	slots    *service.SlotService
	bookings *service.BookingService
	hub      *hub.Hub
}

func NewSlotHandler(slots *service.SlotService, bookings *service.BookingService, h *hub.Hub) *SlotHandler {
	return &SlotHandler{slots: slots, bookings: bookings, hub: h}
}

// GetSlots godoc
// @Summary      List slots
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[SlotResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /slots [get]
func (h *SlotHandler) GetSlots(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.slots.GetSlots(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newSlotResponse))
}

// GetAvailableSlots godoc
// @Summary      List slots that are not full
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[SlotResponse]
// @Router       /slots/available [get]
func (h *SlotHandler) GetAvailableSlots(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.slots.GetAvailableSlots(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newSlotResponse))
}

// GetSlotsByGame godoc
// @Summary      List slots of a game
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int true  "Game ID"
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[SlotResponse]
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /slots/game/{id} [get]
func (h *SlotHandler) GetSlotsByGame(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.slots.GetSlotsByGame(c.Request.Context(), currentActor(c), id, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newSlotResponse))
}

// GetSlotsByDateRange godoc
// @Summary      List slots inside a time window
// @Description  Returns slots that start and end within [start, end].
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        start query string true  "RFC3339 start" example(2025-06-01T00:00:00Z)
// @Param        end   query string true  "RFC3339 end" example(2025-06-02T00:00:00Z)
// @Param        skip  query int    false "Items to skip" default(0)
// @Param        limit query int    false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[SlotResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /slots/range [get]
func (h *SlotHandler) GetSlotsByDateRange(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		respondError(c, apperr.Validation("start must be an RFC3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		respondError(c, apperr.Validation("end must be an RFC3339 timestamp"))
		return
	}
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.slots.GetSlotsByDateRange(c.Request.Context(), currentActor(c), start, end, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newSlotResponse))
}

// GetSlot godoc
// @Summary      Get a slot with its occupancy
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Slot ID"
// @Success      200 {object} SlotResponse
// @Failure      404 {object} ErrorResponse "Slot not found"
// @Router       /slots/{id} [get]
func (h *SlotHandler) GetSlot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	slot, err := h.slots.GetSlot(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSlotResponse(*slot))
}

// CreateSlot godoc
// @Summary      Create a slot
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body SlotInput true "Slot Info"
// @Success      201 {object} SlotResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Failure      409 {object} ErrorResponse "Overlapping slot"
// @Router       /slots [post]
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var input SlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	slot, err := h.slots.CreateSlot(c.Request.Context(), currentActor(c), service.SlotCreate{
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Capacity:  input.Capacity,
		GameID:    input.GameID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSlotResponse(*slot))
}

// UpdateSlot godoc
// @Summary      Update a slot
// @Description  Start and end cannot change once the slot has bookings.
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int             true "Slot ID"
// @Param        input body SlotUpdateInput true "Fields to change"
// @Success      200 {object} SlotResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /slots/{id} [put]
func (h *SlotHandler) UpdateSlot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input SlotUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	slot, err := h.slots.UpdateSlot(c.Request.Context(), currentActor(c), id, service.SlotUpdate{
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Capacity:  input.Capacity,
		GameID:    input.GameID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSlotResponse(*slot))
}

// DeleteSlot godoc
// @Summary      Delete a slot
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Slot ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Slot has bookings"
// @Router       /slots/{id} [delete]
func (h *SlotHandler) DeleteSlot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.slots.DeleteSlot(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Slot deleted successfully"})
}

// StreamEvents godoc
// @Summary      Watch booking events of a slot
// @Description  Server-sent events; each message is a JSON envelope {type, payload}.
// @Description  Admins receive every event of the slot, other users only events about their own bookings.
// @Tags         slots
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path int true "Slot ID"
// @Success      200 {string} string "event stream"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Slot not found"
// @Router       /slots/{id}/events [get]
func (h *SlotHandler) StreamEvents(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	scope, err := h.bookings.WatchSlot(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	client := make(hub.Client, 16)
	h.hub.Subscribe(id, client, scope)
	defer h.hub.Unsubscribe(id, client)
	log.Printf("[hub] slot %d: user %d watching (%d watchers)", id, scope.UserID, h.hub.Subscribers(id))

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("booking", string(msg))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
