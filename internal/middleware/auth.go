package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"queryhub/internal/service"
)

// AuthMiddleware creates a Gin middleware for JWT authentication. Requests
// without a valid bearer token are rejected before any handler runs.
func AuthMiddleware(tokens *service.TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_error", "message": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_error", "message": "Authorization header format must be Bearer <token>"})
			c.Abort()
			return
		}

		userID, ok := tokens.Verify(parts[1])
		if !ok {
			// Expired vs malformed is already distinguished in the service's
			// logs; callers get one answer.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_error", "message": "Invalid or expired token"})
			c.Abort()
			return
		}

		logger.Debug("User authenticated", zap.Int64("user_id", userID))
		c.Set("user_id", userID)

		c.Next()
	}
}
