package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/models"
	"slotbooking/backend/internal/service"
)

// region --- DTOs ---

type GameInput struct {
	Title       string `json:"title" binding:"required" example:"Chess"`
	Description string `json:"description"`
	Background  string `json:"background"`
}

type GameUpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Background  *string `json:"background"`
}

type GameResponse struct {
	ID          uint      `json:"id" example:"1"`
	Title       string    `json:"title" example:"Chess"`
	Description string    `json:"description"`
	Background  string    `json:"background"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newGameResponse(g models.Game) GameResponse {
	return GameResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Background:  g.Background,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// endregion

type GameHandler struct {
	games *service.GameService
}

func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// GetGames godoc
// @Summary      List games
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[GameResponse]
// @Router       /games [get]
func (h *GameHandler) GetGames(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.games.GetGames(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newGameResponse))
}

// GetGamesWithAvailableSlots godoc
// @Summary      List games with free slots
// @Description  Games owning at least one slot that is not full.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        skip  query int false "Items to skip" default(0)
// @Param        limit query int false "Items per page" default(100)
// @Success      200 {object} PaginatedResponse[GameResponse]
// @Router       /games/available [get]
func (h *GameHandler) GetGamesWithAvailableSlots(c *gin.Context) {
	p, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.games.GetGamesWithAvailableSlots(c.Request.Context(), currentActor(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(page, newGameResponse))
}

// GetGame godoc
// @Summary      Get a game
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200 {object} GameResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Router       /games/{id} [get]
func (h *GameHandler) GetGame(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	game, err := h.games.GetGame(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameResponse(*game))
}

// CreateGame godoc
// @Summary      Create a new game
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body GameInput true "Game Info"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Title taken"
// @Router       /games [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	var input GameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	game, err := h.games.CreateGame(c.Request.Context(), currentActor(c), service.GameCreate{
		Title:       input.Title,
		Description: input.Description,
		Background:  input.Background,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGameResponse(*game))
}

// UpdateGame godoc
// @Summary      Update a game
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int             true  "Game ID"
// @Param        input body      GameUpdateInput true  "Fields to change"
// @Success      200   {object}  GameResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse "Game not found"
// @Failure      409   {object}  ErrorResponse "Title taken"
// @Router       /games/{id} [put]
func (h *GameHandler) UpdateGame(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input GameUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	game, err := h.games.UpdateGame(c.Request.Context(), currentActor(c), id, service.GameUpdate{
		Title:       input.Title,
		Description: input.Description,
		Background:  input.Background,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameResponse(*game))
}

// DeleteGame godoc
// @Summary      Delete a game
// @Description  Fails with 409 while the game still has slots.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Game not found"
// @Failure      409 {object} ErrorResponse
// @Router       /games/{id} [delete]
func (h *GameHandler) DeleteGame(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.games.DeleteGame(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Game deleted successfully"})
}
