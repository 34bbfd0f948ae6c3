package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/services"
)

const principalContextKey = "principal"

// AuthMiddleware parses the bearer token and resolves the principal for the
// request, including the fresh tenant-active check.
func AuthMiddleware(tokens *auth.TokenIssuer, directory services.DirectoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing bearer token",
			})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		principal, err := directory.ResolvePrincipal(c.Request.Context(), claims)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired token",
			})
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}
