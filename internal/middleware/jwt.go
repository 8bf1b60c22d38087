package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/surveychain/backend/internal/auth"
	"github.com/surveychain/backend/pkg/response"
)

const (
	// ContextAddress is the key for the caller's canonical wallet address in gin context.
	ContextAddress = "address"
)

// JWT returns a middleware that validates JWT and sets the caller address in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextAddress, claims.Address)
		c.Next()
	}
}

// Address returns the authenticated caller address, or "" outside the JWT middleware.
func Address(c *gin.Context) string {
	v, ok := c.Get(ContextAddress)
	if !ok {
		return ""
	}
	addr, _ := v.(string)
	return addr
}
