// Package session keeps the per-browser state (logged in user, flash
// messages, CSRF token) in a signed cookie, so no session rows exist.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/pkg/auth"
)

// contextKey is where the loaded session lives in the gin context
const contextKey = "session"

// Flash categories
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

// Options configure the session cookie
type Options struct {
	CookieName string
	Secure     bool
}

// Session is the mutable per-request view of the cookie
type Session struct {
	claims auth.SessionClaims
	dirty  bool
}

// UserID returns the authenticated user id, if any
func (s *Session) UserID() (int64, bool) {
	if s.claims.UserID == nil {
		return 0, false
	}
	return *s.claims.UserID, true
}

// SetUserID marks the browser as logged in and rotates the CSRF token
func (s *Session) SetUserID(id int64) {
	s.claims.UserID = &id
	s.claims.CSRFToken = ""
	s.dirty = true
}

// ClearUser logs the browser out while keeping pending flashes
func (s *Session) ClearUser() {
	s.claims.UserID = nil
	s.dirty = true
}

// AddFlash queues a message for the next rendered page
func (s *Session) AddFlash(category, message string) {
	s.claims.Flashes = append(s.claims.Flashes, auth.Flash{Category: category, Message: message})
	s.dirty = true
}

// Flashes returns and consumes the queued messages
func (s *Session) Flashes() []auth.Flash {
	flashes := s.claims.Flashes
	if len(flashes) > 0 {
		s.claims.Flashes = nil
		s.dirty = true
	}
	return flashes
}

// CSRFToken returns the session's CSRF token, creating one on first use
func (s *Session) CSRFToken() string {
	if s.claims.CSRFToken == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		s.claims.CSRFToken = base64.RawURLEncoding.EncodeToString(buf)
		s.dirty = true
	}
	return s.claims.CSRFToken
}

// Manager loads and stores sessions for gin requests
type Manager struct {
	jwt    *auth.JWTService
	opts   Options
	logger zerolog.Logger
}

// NewManager creates a new session Manager
func NewManager(jwtService *auth.JWTService, opts Options, logger zerolog.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	return &Manager{jwt: jwtService, opts: opts, logger: logger}
}

// Middleware decodes the cookie into the request context. A missing,
// expired or forged cookie yields an empty session.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := &Session{}
		if raw, err := c.Cookie(m.opts.CookieName); err == nil && raw != "" {
			claims, err := m.jwt.Parse(raw)
			if err != nil {
				m.logger.Debug().Err(err).Msg("Discarding invalid session cookie")
				sess.dirty = true
			} else {
				sess.claims = *claims
			}
		}
		c.Set(contextKey, sess)
		c.Writer = &cookieWriter{ResponseWriter: c.Writer, manager: m, ctx: c}
		c.Next()
	}
}

// cookieWriter saves the session right before the status line goes out, so
// handlers never have to remember to do it themselves
type cookieWriter struct {
	gin.ResponseWriter
	manager *Manager
	ctx     *gin.Context
}

func (w *cookieWriter) save() {
	if w.ResponseWriter.Written() {
		return
	}
	if err := w.manager.Save(w.ctx); err != nil {
		w.manager.logger.Error().Err(err).Msg("Failed to save session")
	}
}

func (w *cookieWriter) WriteHeader(code int) {
	w.save()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) WriteHeaderNow() {
	w.save()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(data []byte) (int, error) {
	w.save()
	return w.ResponseWriter.Write(data)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.save()
	return w.ResponseWriter.WriteString(s)
}

// Get returns the session attached by Middleware
func Get(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if sess, ok := v.(*Session); ok {
			return sess
		}
	}
	sess := &Session{}
	c.Set(contextKey, sess)
	return sess
}

// Save writes the cookie if the session changed. Middleware calls it
// automatically before the response header is sent.
func (m *Manager) Save(c *gin.Context) error {
	sess := Get(c)
	if !sess.dirty {
		return nil
	}

	signed, err := m.jwt.Sign(&sess.claims)
	if err != nil {
		return err
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
	return nil
}
