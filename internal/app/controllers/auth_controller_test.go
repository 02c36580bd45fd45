package controllers_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/roster/internal/app/models"
	"github.com/yigit/roster/internal/config"
)

func (a *testApp) user(username string) *models.User {
	a.t.Helper()
	user, err := a.deps.Repos.UserRepository.GetByUsername(context.Background(), username)
	require.NoError(a.t, err)
	return user
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"short username", url.Values{"username": {"al"}, "password": {"secret1"}, "confirm_password": {"secret1"}}, "Username must be at least 3 characters"},
		{"short password", url.Values{"username": {"alice"}, "password": {"12345"}, "confirm_password": {"12345"}}, "Password must be at least 6 characters"},
		{"mismatch", url.Values{"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"secret2"}}, "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.postForm("/register", tt.form)
			require.Equal(t, http.StatusSeeOther, resp.status)
			assert.Equal(t, "/register", resp.location)
			assert.Contains(t, app.follow(resp).body, tt.want)
		})
	}
	assert.Equal(t, 0, app.count("users"))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	app := newTestApp(t)

	require.Equal(t, "/login", app.register("alice", "secret1").location)
	assert.Equal(t, 1, app.count("users"))

	resp := app.register("alice", "another1")
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/register", resp.location)
	assert.Contains(t, app.follow(resp).body, "Username already taken")
	assert.Equal(t, 1, app.count("users"))

	stored := app.user("alice")
	assert.NotEqual(t, "secret1", stored.PasswordHash)
}

func TestLogin_GenericFailure(t *testing.T) {
	app := newTestApp(t)
	app.follow(app.register("alice", "secret1"))

	var messages []string
	for _, creds := range [][2]string{{"alice", "wrong-password"}, {"mallory", "secret1"}} {
		resp := app.login(creds[0], creds[1])
		require.Equal(t, http.StatusSeeOther, resp.status)
		assert.Equal(t, "/login", resp.location)
		body := app.follow(resp).body
		assert.Contains(t, body, "Invalid username or password")
		messages = append(messages, body)

		gate := app.get("/")
		assert.Equal(t, http.StatusFound, gate.status, "no session after a failed login")
	}
	assert.Equal(t, messages[0], messages[1])

	for _, form := range []url.Values{
		{"username": {"alice"}},
		{"password": {"secret1"}},
		{"username": {"alice"}, "password": {""}},
	} {
		resp := app.postForm("/login", form)
		require.Equal(t, http.StatusSeeOther, resp.status)
		assert.Equal(t, "/login", resp.location)
		assert.Contains(t, app.follow(resp).body, "Username and password are required")
	}
	assert.Equal(t, http.StatusFound, app.get("/").status)
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin("alice", "secret1")

	assert.Equal(t, http.StatusOK, app.get("/").status)

	resp := app.get("/logout")
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "Logged out successfully")

	gate := app.get("/")
	assert.Equal(t, http.StatusFound, gate.status)
	assert.Equal(t, "/login", gate.location)
}

func TestIndex_StaleSessionIsDropped(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin("alice", "secret1")

	page := app.get("/")
	require.Equal(t, http.StatusOK, page.status)
	assert.Contains(t, page.body, "Logged in as alice")

	_, err := app.deps.DB.ExecContext(context.Background(), "DELETE FROM users")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		gate := app.get("/")
		assert.Equal(t, http.StatusFound, gate.status)
		assert.Equal(t, "/login", gate.location)
	}
	assert.Equal(t, http.StatusFound, app.get("/add").status, "the session no longer carries a user")
}

func TestForgotPassword(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, "/login", app.register("alice", "secret1").location)

	resp := app.postForm("/forgot_password", url.Values{"username": {"nobody"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/forgot_password", resp.location)
	assert.Contains(t, app.follow(resp).body, "Username does not exist")

	before := time.Now()
	resp = app.postForm("/forgot_password", url.Values{"username": {"alice"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "A password reset link has been sent to your email.")

	user := app.user("alice")
	require.NotNil(t, user.ResetToken)
	require.NotNil(t, user.ResetTokenExpiry)
	assert.NotEmpty(t, *user.ResetToken)
	assert.WithinDuration(t, before.Add(time.Hour), *user.ResetTokenExpiry, time.Minute)
}

func TestResetPassword_Flow(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, "/login", app.register("alice", "secret1").location)
	require.Equal(t, "/login", app.postForm("/forgot_password", url.Values{"username": {"alice"}}).location)
	token := *app.user("alice").ResetToken
	path := "/reset_password/" + url.PathEscape(token)

	resp := app.get("/reset_password/not-a-token")
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "Invalid or expired reset token")

	page := app.get(path)
	require.Equal(t, http.StatusOK, page.status)
	assert.Contains(t, page.body, `name="new_password"`)

	resp = app.postForm(path, url.Values{"new_password": {"short"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, path, resp.location)
	assert.Contains(t, app.follow(resp).body, "Password must be at least 6 characters")
	require.NotNil(t, app.user("alice").ResetToken, "a rejected password keeps the token")

	resp = app.postForm(path, url.Values{"new_password": {"newsecret"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "Your password has been reset, you can log in now")

	user := app.user("alice")
	assert.Nil(t, user.ResetToken)
	assert.Nil(t, user.ResetTokenExpiry)

	resp = app.postForm(path, url.Values{"new_password": {"another1"}})
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "Invalid or expired reset token")

	assert.Equal(t, "/login", app.login("alice", "secret1").location)
	app.get("/login")
	assert.Equal(t, "/", app.login("alice", "newsecret").location)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, "/login", app.register("alice", "secret1").location)
	require.Equal(t, "/login", app.postForm("/forgot_password", url.Values{"username": {"alice"}}).location)

	user := app.user("alice")
	require.NoError(t, app.deps.Repos.UserRepository.SetResetToken(
		context.Background(), user.ID, *user.ResetToken, time.Now().Add(-time.Minute)))
	path := "/reset_password/" + url.PathEscape(*user.ResetToken)

	resp := app.get(path)
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "Invalid or expired reset token")

	resp = app.postForm(path, url.Values{"new_password": {"newsecret"}})
	assert.Equal(t, "/login", resp.location)
	assert.Contains(t, app.follow(resp).body, "Invalid or expired reset token")

	after := app.user("alice")
	assert.Equal(t, user.PasswordHash, after.PasswordHash)
	assert.NotNil(t, after.ResetToken, "expired tokens are not purged")
}

func TestCSRF_FormsCarryTheSessionToken(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.Security.CSRFEnabled = true })

	resp := app.postForm("/register", url.Values{
		"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"secret1"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, 0, app.count("users"))

	token := csrfToken(t, app.get("/register").body)
	resp = app.postForm("/register", url.Values{
		"csrf_token": {token},
		"username":   {"alice"}, "password": {"secret1"}, "confirm_password": {"secret1"},
	})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, 1, app.count("users"))

	// Logging in rotates the token
	token = csrfToken(t, app.follow(resp).body)
	resp = app.postForm("/login", url.Values{"csrf_token": {token}, "username": {"alice"}, "password": {"secret1"}})
	require.Equal(t, "/", resp.location)
	app.follow(resp)
	rotated := csrfToken(t, app.get("/add").body)
	assert.NotEqual(t, token, rotated)

	resp = app.postMultipart("/add", map[string]string{"csrf_token": token, "name": "Bob", "age": "20"}, "bob.jpg", jpeg)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	resp = app.postMultipart("/add", map[string]string{"csrf_token": rotated, "name": "Bob", "age": "20"}, "bob.jpg", jpeg)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, 1, app.count("students"))
}

func TestRateLimit_AccountForms(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Security.AuthRateLimit = 0.001
		cfg.Security.AuthRateBurst = 2
	})

	assert.Equal(t, http.StatusSeeOther, app.login("alice", "wrong-pass").status)
	assert.Equal(t, http.StatusSeeOther, app.login("alice", "wrong-pass").status)
	assert.Equal(t, http.StatusTooManyRequests, app.login("alice", "wrong-pass").status)
	assert.Equal(t, http.StatusOK, app.get("/login").status)
}
