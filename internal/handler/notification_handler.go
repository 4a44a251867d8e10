package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"skillswap/backend/internal/models"
	"skillswap/backend/internal/store"
)

// NotificationResponse defines the structure for one feed entry.
type NotificationResponse struct {
	ID         uint      `json:"id"`
	Type       string    `json:"type"`
	FromUserID uint      `json:"from_user_id,omitempty"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

func newNotificationResponse(n models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Type:       string(n.Type),
		FromUserID: n.FromUserID,
		Message:    n.Message,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

// ListNotifications godoc
// @Summary      List own notifications
// @Description  Returns a paginated list of the caller's notifications, newest first.
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(20)
// @Success      200 {object} PaginatedResponse[NotificationResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	page, limit := pageParams(c)

	notifications, total, err := h.Notifications.ListForUser(c.Request.Context(),
		currentUserID(c), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	responses := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, newNotificationResponse(n))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(responses, total, page, limit))
}

// MarkNotificationRead godoc
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Notification ID"
// @Success      200 {object} map[string]string "{"message": "Notification marked read"}"
// @Failure      404 {object} ErrorResponse
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	err = h.Notifications.MarkRead(c.Request.Context(), currentUserID(c), uint(notificationID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// MarkAllNotificationsRead godoc
// @Summary      Mark all notifications read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string "{"message": "All notifications marked read"}"
// @Failure      401 {object} ErrorResponse
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.Notifications.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}
