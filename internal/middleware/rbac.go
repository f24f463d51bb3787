package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guarderia-api/internal/models"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
	"github.com/noah-isme/guarderia-api/pkg/response"
)

// RequireRoles admits callers whose role is one of roles. It must run
// after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireFacility rejects non-coordinators whose token carries no facility.
func RequireFacility() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.IsCoordinator() && claims.FacilityID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "user has no facility assigned"))
			c.Abort()
			return
		}
		c.Next()
	}
}
