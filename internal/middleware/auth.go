package middleware

import (
	"net/http"
	"strings"

	"satang/config"
	"satang/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the JWT and sets UserID, Email and the credit
// Reference in context. Payment handlers take the reference from here, never
// from request bodies.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("reference", claims.Reference)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID from context (must be used after AuthRequired).
func GetUserID(c *gin.Context) uint {
	v, _ := c.Get("user_id")
	if v == nil {
		return 0
	}
	return v.(uint)
}

// GetReference returns the authenticated credit reference from context.
func GetReference(c *gin.Context) string {
	v, _ := c.Get("reference")
	if v == nil {
		return ""
	}
	return v.(string)
}
