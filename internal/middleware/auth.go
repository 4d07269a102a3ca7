package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"tradenest-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	authorizationHeaderKey  = "Authorization"
	authorizationTypeBearer = "bearer"
	authorizationPayloadKey = "userID"
)

// AuthMiddleware returns a Gin middleware that validates bearer tokens.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeaderKey)

		if len(authHeader) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is not provided"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		authType := strings.ToLower(fields[0])
		if authType != authorizationTypeBearer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unsupported authorization type, 'Bearer' required"})
			return
		}

		accessToken := fields[1]
		claims, err := utils.ValidateJWT(accessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "details": err.Error()})
			return
		}

		c.Set(authorizationPayloadKey, claims.UserID)

		c.Next()
	}
}

// UserIDFromContext returns the authenticated user's ID placed in the
// context by AuthMiddleware.
func UserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(authorizationPayloadKey)
	if !exists {
		return uuid.Nil, fmt.Errorf("userID not found in request context")
	}
	id, err := uuid.Parse(raw.(string))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid userID in request context: %w", err)
	}
	return id, nil
}
