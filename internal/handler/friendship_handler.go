package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skillswap/backend/internal/friendship"
	"skillswap/backend/internal/models"
)

// region --- DTOs ---

// FriendRequestResponse describes one entry of a user's request lists.
type FriendRequestResponse struct {
	ID        string `json:"id"`
	UserID    uint   `json:"user_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// RequestListResponse groups a user's outgoing and incoming requests.
type RequestListResponse struct {
	Sent     []FriendRequestResponse `json:"sent"`
	Received []FriendRequestResponse `json:"received"`
}

func buildRequestList(entries []models.FriendRequestEntry) []FriendRequestResponse {
	out := make([]FriendRequestResponse, 0, len(entries))
	for _, e := range entries {
		if e.Status != models.RequestPending {
			continue
		}
		out = append(out, FriendRequestResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// endregion

func targetIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return 0, false
	}
	return uint(id), true
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request to another user. If that user already requested the caller, the two are connected immediately.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  map[string]string "{"status": "pending|connected", "request_id": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Target user not found"
// @Failure      409  {object}  ErrorResponse "Already friends or already requested"
// @Router       /users/{id}/request [post]
func (h *Handler) SendRequest(c *gin.Context) {
	targetID, ok := targetIDParam(c)
	if !ok {
		return
	}

	result, err := h.Friendships.Send(c.Request.Context(), currentUserID(c), targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":     string(result.Outcome),
		"request_id": result.RequestID,
	})
}

// RespondRequest godoc
// @Summary      Answer a friend request
// @Description  Accepts or rejects a pending received friend request.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        requestId path  string true "Request ID"
// @Param        action    query string true "accept or reject"
// @Success      200  {object}  map[string]string "{"message": "Request resolved"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Pending request not found"
// @Router       /users/requests/{requestId} [post]
func (h *Handler) RespondRequest(c *gin.Context) {
	action := friendship.Action(c.Query("action"))
	err := h.Friendships.Respond(c.Request.Context(), currentUserID(c), c.Param("requestId"), action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request resolved"})
}

// CancelRequest godoc
// @Summary      Cancel a sent friend request
// @Description  Withdraws a still-pending friend request to another user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      200  {object}  map[string]string "{"message": "Request cancelled"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "No pending request"
// @Router       /users/{id}/cancel [post]
func (h *Handler) CancelRequest(c *gin.Context) {
	targetID, ok := targetIDParam(c)
	if !ok {
		return
	}

	if err := h.Friendships.Cancel(c.Request.Context(), currentUserID(c), targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}

// Unfriend godoc
// @Summary      Remove a friend
// @Description  Removes the friendship in both directions.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Friend User ID"
// @Success      200  {object}  map[string]string "{"message": "Friend removed"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Not friends"
// @Router       /users/{id}/remove [post]
func (h *Handler) Unfriend(c *gin.Context) {
	friendID, ok := targetIDParam(c)
	if !ok {
		return
	}

	if err := h.Friendships.Unfriend(c.Request.Context(), currentUserID(c), friendID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Friend removed"})
}

// ListRequests godoc
// @Summary      List own pending friend requests
// @Description  Returns the caller's pending sent and received requests.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  RequestListResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/requests [get]
func (h *Handler) ListRequests(c *gin.Context) {
	user, err := h.Users.FindByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, RequestListResponse{
		Sent:     buildRequestList(user.SentRequests),
		Received: buildRequestList(user.ReceivedRequests),
	})
}

// ListFriends godoc
// @Summary      List own friends
// @Description  Returns the public profiles of the caller's friends.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   PublicUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	user, err := h.Users.FindByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	friends := make([]PublicUserResponse, 0, len(user.Friends))
	for _, friendID := range user.Friends {
		friend, err := h.Users.FindByID(c.Request.Context(), friendID)
		if err != nil {
			continue
		}
		friends = append(friends, buildPublicUserResponse(friend, user))
	}

	c.JSON(http.StatusOK, friends)
}
