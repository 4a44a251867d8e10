package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"skillswap/backend/internal/models"
)

// region --- DTOs ---

// BookingInput defines the structure for creating a session request.
type BookingInput struct {
	ToUserID      uint       `json:"to_user_id" binding:"required"`
	Skill         string     `json:"skill" binding:"required"`
	Message       string     `json:"message"`
	PreferredDate *time.Time `json:"preferred_date"`
}

// RescheduleInput defines the structure for moving an accepted session.
type RescheduleInput struct {
	NewDate time.Time `json:"new_date" binding:"required"`
}

// BookingResponse defines the structure for a session request.
type BookingResponse struct {
	ID            uint       `json:"id"`
	FromUserID    uint       `json:"from_user_id"`
	ToUserID      uint       `json:"to_user_id"`
	Skill         string     `json:"skill"`
	Message       string     `json:"message,omitempty"`
	PreferredDate *time.Time `json:"preferred_date,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		FromUserID:    b.FromUserID,
		ToUserID:      b.ToUserID,
		Skill:         b.Skill,
		Message:       b.Message,
		PreferredDate: b.PreferredDate,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// endregion

func bookingIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return 0, false
	}
	return uint(id), true
}

// CreateBooking godoc
// @Summary      Request a teaching session
// @Description  Creates a pending session request for a skill with another user.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body BookingInput true "Session request"
// @Success      201  {object}  BookingResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      409  {object}  ErrorResponse "A pending request for this skill already exists"
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	var input BookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.Bookings.Create(c.Request.Context(), currentUserID(c),
		input.ToUserID, input.Skill, input.Message, input.PreferredDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newBookingResponse(booking))
}

// ListBookings godoc
// @Summary      List own bookings
// @Description  Returns a paginated list of the caller's session requests.
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        role  query string false "Filter by role (sent, received)"
// @Param        page  query int    false "Page number" default(1)
// @Param        limit query int    false "Items per page" default(20)
// @Success      200 {object} PaginatedResponse[BookingResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /bookings [get]
func (h *Handler) ListBookings(c *gin.Context) {
	page, limit := pageParams(c)

	bookings, total, err := h.Bookings.ListForUser(c.Request.Context(),
		currentUserID(c), c.Query("role"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, newBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(responses, total, page, limit))
}

// GetBooking godoc
// @Summary      Get a booking
// @Description  Returns one of the caller's session requests.
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse "Not a participant"
// @Failure      404 {object} ErrorResponse
// @Router       /bookings/{id} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	booking, err := h.Bookings.Get(c.Request.Context(), currentUserID(c), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(booking))
}

// AcceptBooking godoc
// @Summary      Accept a session request
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse "Only the recipient can accept"
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Illegal transition"
// @Router       /bookings/{id}/accept [post]
func (h *Handler) AcceptBooking(c *gin.Context) {
	h.updateBookingStatus(c, models.BookingAccepted)
}

// RejectBooking godoc
// @Summary      Decline a session request
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse "Only the recipient can reject"
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Illegal transition"
// @Router       /bookings/{id}/reject [post]
func (h *Handler) RejectBooking(c *gin.Context) {
	h.updateBookingStatus(c, models.BookingRejected)
}

// CompleteBooking godoc
// @Summary      Mark a session completed
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} BookingResponse
// @Failure      403 {object} ErrorResponse "Not a participant"
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Illegal transition"
// @Router       /bookings/{id}/complete [post]
func (h *Handler) CompleteBooking(c *gin.Context) {
	h.updateBookingStatus(c, models.BookingCompleted)
}

func (h *Handler) updateBookingStatus(c *gin.Context, next models.BookingStatus) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	booking, err := h.Bookings.UpdateStatus(c.Request.Context(), currentUserID(c), bookingID, next)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(booking))
}

// RescheduleBooking godoc
// @Summary      Reschedule an accepted session
// @Description  Moves an accepted session to a new future date.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Booking ID"
// @Param        input body RescheduleInput true "New date"
// @Success      200 {object} BookingResponse
// @Failure      400 {object} ErrorResponse "Date not in the future"
// @Failure      403 {object} ErrorResponse "Not a participant"
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Session not accepted"
// @Router       /bookings/{id}/schedule [put]
func (h *Handler) RescheduleBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var input RescheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.Bookings.Reschedule(c.Request.Context(), currentUserID(c), bookingID, input.NewDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(booking))
}

// CancelBooking godoc
// @Summary      Cancel a session
// @Description  Calls off a pending or accepted session.
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Booking ID"
// @Success      200 {object} map[string]string "{"message": "Booking cancelled"}"
// @Failure      403 {object} ErrorResponse "Not a participant"
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Session already resolved"
// @Router       /bookings/{id} [delete]
func (h *Handler) CancelBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	if err := h.Bookings.Cancel(c.Request.Context(), currentUserID(c), bookingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}
