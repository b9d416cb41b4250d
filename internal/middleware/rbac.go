package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
	"github.com/vespa-learn/activity-api/pkg/response"
)

// RequireRole restricts a route to the listed roles. "SELF" additionally
// allows a student acting on their own :studentId path parameter.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		allowSelf := false
		allowedRoles := make(map[string]struct{})
		for _, a := range allowed {
			if a == "SELF" {
				allowSelf = true
				continue
			}
			allowedRoles[a] = struct{}{}
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("studentId"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
