package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap/backend/internal/apperr"
	"skillswap/backend/internal/booking"
	"skillswap/backend/internal/friendship"
	"skillswap/backend/internal/hub"
	"skillswap/backend/internal/store"
)

// Handler carries the dependencies shared by all route handlers.
type Handler struct {
	Users         store.UserStore
	Friendships   *friendship.Service
	Bookings      *booking.Service
	Notifications store.NotificationStore
	Hub           *hub.Hub
	JWTSecret     string
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// respondError translates a service error kind to an HTTP status.
func respondError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Unauthorized:
		status = http.StatusForbidden
	case apperr.InvalidArgument, apperr.Validation:
		status = http.StatusBadRequest
	case apperr.Conflict, apperr.InvalidState:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// currentUserID returns the authenticated user's ID set by the auth
// middleware, or 0 when the request is anonymous.
func currentUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
