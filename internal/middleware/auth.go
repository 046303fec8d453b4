package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/pkg/response"
)

// OwnerAuth returns a middleware that validates the owner bearer token.
// When jwtService is nil (no owner password configured), the middleware
// passes everything through: a freshly shared link should just work.
func OwnerAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtService == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			// WebSocket clients cannot set headers; accept ?token= too.
			header = "Bearer " + c.Query("token")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		if _, err := jwtService.Validate(parts[1]); err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Next()
	}
}
