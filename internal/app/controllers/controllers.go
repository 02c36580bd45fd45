// Package controllers handles HTTP request handling
package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yigit/roster/internal/pkg/session"
)

// Paths the controllers redirect to
const (
	PathIndex          = "/"
	PathAdd            = "/add"
	PathLogin          = "/login"
	PathRegister       = "/register"
	PathForgotPassword = "/forgot_password"
)

// render executes a page with the data every layout needs: pending
// flashes, the CSRF token and whether someone is logged in
func render(c *gin.Context, status int, page string, data gin.H) {
	sess := session.Get(c)
	if data == nil {
		data = gin.H{}
	}
	_, loggedIn := sess.UserID()
	data["loggedIn"] = loggedIn
	data["flashes"] = sess.Flashes()
	data["csrfToken"] = sess.CSRFToken()
	c.HTML(status, page, data)
}

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
