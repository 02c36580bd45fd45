package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/roster/internal/pkg/session"
)

// Context keys set by AuthRequired
const (
	ContextUserID = "userID"
)

// AuthRequired redirects to loginPath unless the session carries a user id
func AuthRequired(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := session.Get(c).UserID()
		if !ok {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated user id set by AuthRequired
func GetUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
