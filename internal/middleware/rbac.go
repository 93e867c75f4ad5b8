package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/complaint-desk-api/internal/models"
	appErrors "github.com/campushub/complaint-desk-api/pkg/errors"
	"github.com/campushub/complaint-desk-api/pkg/response"
)

// RequireRoles gates a route to the given roles. Finer-grained checks, such
// as ownership or assignment, live in the service layer where the complaint
// snapshot is available.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
