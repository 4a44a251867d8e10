package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// Middleware creates a gin middleware that requires a valid bearer token
// and sets the userID on the context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromHeader(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

// OptionalMiddleware inspects for a token and sets the userID if present and
// valid, but does not fail if the token is missing or invalid.
func OptionalMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := userIDFromHeader(c, secret); ok {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func userIDFromHeader(c *gin.Context, secret string) (uint, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return 0, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	token, err := gojwt.Parse(parts[1], func(token *gojwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return 0, false
	}
	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, false
	}
	return uint(userIDFloat), true
}
