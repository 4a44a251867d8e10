package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"skillswap/backend/internal/models"
	"skillswap/backend/pkg/jwt"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Nickname string `json:"nickname" binding:"required" example:"testuser"`
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Login    string `json:"login" binding:"required" example:"testuser"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// UpdateProfileInput defines the editable parts of the user's own profile.
type UpdateProfileInput struct {
	Bio    string   `json:"bio"`
	Skills []string `json:"skills"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	ID           uint     `json:"id" example:"1"`
	Nickname     string   `json:"nickname" example:"testuser"`
	Bio          string   `json:"bio,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	FriendsCount int      `json:"friends_count"`
	// RelationToMe is one of none, pending, received, connected. Omitted for
	// anonymous viewers.
	RelationToMe string `json:"relation_to_me,omitempty"`
}

// PrivateUserResponse defines the structure for the authenticated user's own
// profile.
type PrivateUserResponse struct {
	ID           uint     `json:"id" example:"1"`
	Nickname     string   `json:"nickname" example:"testuser"`
	Email        string   `json:"email" example:"test@example.com"`
	Bio          string   `json:"bio,omitempty"`
	Skills       []string `json:"skills,omitempty"`
	FriendsCount int      `json:"friends_count"`
}

func buildPublicUserResponse(user *models.User, viewer *models.User) PublicUserResponse {
	resp := PublicUserResponse{
		ID:           user.ID,
		Nickname:     user.Nickname,
		Bio:          user.Bio,
		Skills:       user.Skills,
		FriendsCount: len(user.Friends),
	}
	if viewer != nil && viewer.ID != user.ID {
		resp.RelationToMe = relationBetween(viewer, user.ID)
	}
	return resp
}

func relationBetween(viewer *models.User, otherID uint) string {
	switch {
	case viewer.IsFriend(otherID):
		return "connected"
	case viewer.PendingSentTo(otherID) >= 0:
		return "pending"
	case viewer.PendingReceivedFrom(otherID) >= 0:
		return "received"
	default:
		return "none"
	}
}

func buildPrivateUserResponse(user *models.User) PrivateUserResponse {
	return PrivateUserResponse{
		ID:           user.ID,
		Nickname:     user.Nickname,
		Email:        user.Email,
		Bio:          user.Bio,
		Skills:       user.Skills,
		FriendsCount: len(user.Friends),
	}
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user and returns an authentication token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.Users.FindByLogin(c.Request.Context(), input.Nickname); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Nickname or email already exists"})
		return
	}
	if _, err := h.Users.FindByLogin(c.Request.Context(), input.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Nickname or email already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := h.Users.Create(c.Request.Context(), &user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := jwt.GenerateToken(user.ID, h.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with nickname/email and password, and returns a new token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  map[string]string "{"token": "..."}"
// @Failure      400  {object}  ErrorResponse "Invalid input"
// @Failure      401  {object}  ErrorResponse "Invalid credentials"
// @Failure      404  {object}  ErrorResponse "User not found"
// @Failure      500  {object}  ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Users.FindByLogin(c.Request.Context(), input.Login)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := jwt.GenerateToken(user.ID, h.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// endregion

// region --- Profile Handlers ---

// GetMe godoc
// @Summary      Get own profile
// @Description  Returns the authenticated user's full profile.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.Users.FindByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// UpdateMe godoc
// @Summary      Update own profile
// @Description  Updates the authenticated user's bio and skills.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateProfileInput true "Profile changes"
// @Success      200  {object}  PrivateUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /users/me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Users.FindByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Bio = input.Bio
	user.Skills = input.Skills
	if err := h.Users.Save(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, buildPrivateUserResponse(user))
}

// GetUserByID godoc
// @Summary      Get a user's public profile
// @Description  Returns a user's public profile, with the relation to the viewer when authenticated.
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) GetUserByID(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.Users.FindByID(c.Request.Context(), uint(targetID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var viewer *models.User
	if viewerID := currentUserID(c); viewerID != 0 {
		viewer, _ = h.Users.FindByID(c.Request.Context(), viewerID)
	}

	c.JSON(http.StatusOK, buildPublicUserResponse(user, viewer))
}

// endregion
