package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"slotbooking/backend/internal/apperr"
	"slotbooking/backend/internal/auth"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/middleware"
	"slotbooking/backend/internal/models"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Booking deleted"`
}

var errorStatus = []struct {
	kind   error
	status int
}{
	{apperr.ErrNotFound, http.StatusNotFound},
	{apperr.ErrValidation, http.StatusBadRequest},
	{apperr.ErrConflict, http.StatusConflict},
	{apperr.ErrForbidden, http.StatusForbidden},
	{apperr.ErrUnauthorized, http.StatusUnauthorized},
}

// respondError maps a service error onto an HTTP status. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.kind) {
			c.JSON(m.status, ErrorResponse{Error: apperr.Message(err)})
			return
		}
	}
	log.Printf("[http] %s %s (request %s): %v", c.Request.Method, c.FullPath(), c.GetString(middleware.RequestIDKey), err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func currentActor(c *gin.Context) authz.Actor {
	actor, _ := auth.ActorFrom(c)
	return actor
}

// parseStatus accepts any casing and returns the canonical status.
func parseStatus(s string) (models.BookingStatus, error) {
	st, ok := models.ParseBookingStatus(s)
	if !ok {
		return "", apperr.Validation("Invalid booking status: " + s + ". Must be one of PENDING, CONFIRMED, CANCELLED")
	}
	return st, nil
}
