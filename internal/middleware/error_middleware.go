package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/session"
)

// MsgUnexpectedError is flashed when an error carries no message of its own
const MsgUnexpectedError = "An unexpected error occurred."

// HandleFormError maps a service error onto the HTML flow: not found becomes
// a bare 404, everything else is flashed and redirected back to the form.
func HandleFormError(c *gin.Context, logger zerolog.Logger, err error, back string) {
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	switch {
	case apperrors.Is(err, apperrors.ErrValidationFailed, apperrors.ErrInvalidCredentials):
		logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Form rejected")
	case errors.Is(err, apperrors.ErrFileSystem):
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Filesystem error")
	case errors.Is(err, apperrors.ErrStorage):
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Storage error")
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unexpected error")
	}

	session.Get(c).AddFlash(session.FlashError, apperrors.Message(err, MsgUnexpectedError))
	c.Redirect(http.StatusSeeOther, back)
}

// FlashWarnings queues soft failures that did not stop the operation
func FlashWarnings(c *gin.Context, warnings []string) {
	sess := session.Get(c)
	for _, w := range warnings {
		sess.AddFlash(session.FlashWarning, w)
	}
}
