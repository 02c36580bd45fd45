package email

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ResetNotifier delivers password reset links to account holders
type ResetNotifier interface {
	SendPasswordResetLink(username, token string) error
}

// LogNotifier never sends mail. It writes the reset link to the log so an
// operator can hand it over during development.
type LogNotifier struct {
	baseURL string
	logger  zerolog.Logger
}

// NewLogNotifier creates a notifier that logs links rooted at baseURL
func NewLogNotifier(baseURL string, logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ResetURL builds the link a user follows to set a new password
func (n *LogNotifier) ResetURL(token string) string {
	return fmt.Sprintf("%s/reset_password/%s", n.baseURL, url.PathEscape(token))
}

// SendPasswordResetLink logs the reset link for username
func (n *LogNotifier) SendPasswordResetLink(username, token string) error {
	if token == "" {
		return fmt.Errorf("empty reset token for %q", username)
	}

	n.logger.Warn().
		Str("username", username).
		Str("resetURL", n.ResetURL(token)).
		Msg("Mail delivery not configured - password reset link not sent. Use the URL above.")
	return nil
}
