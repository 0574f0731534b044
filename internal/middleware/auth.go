package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/openretreat/office-sync/pkg/errors"
	"github.com/openretreat/office-sync/pkg/response"
)

// Auth guards the admin surface with a static bearer token. When no
// token is configured every request is rejected rather than let the
// surface stand open.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "admin access is not configured"))
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		provided, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
