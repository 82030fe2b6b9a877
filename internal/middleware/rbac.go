package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hstu-emis/admin-gateway/internal/models"
	"github.com/hstu-emis/admin-gateway/internal/service"
	appErrors "github.com/hstu-emis/admin-gateway/pkg/errors"
	"github.com/hstu-emis/admin-gateway/pkg/response"
)

// RequireRoles gates a route to the given dashboard roles. A route may
// additionally allow "self" access for students reaching their own
// resources via the :username parameter.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[session.Role()]; ok {
			c.Next()
			return
		}

		// Students may reach their own records.
		if session.Role() == models.RoleStudent {
			if target := c.Param("username"); target != "" && target == session.Username() {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequirePermission gates a route on a fine-grained capability code,
// independent of the role gate. Administrators pass unconditionally.
func RequirePermission(sessions *service.SessionService, code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !sessions.HasPermission(session, code) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
