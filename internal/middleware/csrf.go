package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/session"
)

// CSRF form field and header names
const (
	CSRFFormField = "csrf_token"
	CSRFHeader    = "X-CSRF-Token"
)

// CSRF rejects state-changing requests whose token does not match the one
// stored in the session
func CSRF(enabled bool, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		expected := session.Get(c).CSRFToken()
		submitted := c.PostForm(CSRFFormField)
		if submitted == "" {
			submitted = c.GetHeader(CSRFHeader)
		}

		if submitted == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) != 1 {
			logger.Warn().
				Str("path", c.Request.URL.Path).
				Str("clientIP", c.ClientIP()).
				Err(apperrors.ErrCSRFTokenInvalid).
				Msg("Rejected request")
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		c.Next()
	}
}
