package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/app/services"
	"github.com/yigit/roster/internal/middleware"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/session"
)

type registerForm struct {
	Username        string `form:"username"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

type loginForm struct {
	Username string `form:"username" binding:"required" msg:"Username and password are required"`
	Password string `form:"password" binding:"required" msg:"Username and password are required"`
}

type forgotPasswordForm struct {
	Username string `form:"username"`
}

type resetPasswordForm struct {
	NewPassword string `form:"new_password"`
}

// AuthController handles account pages: register, login, logout and
// password reset
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// RegisterForm shows the registration page
func (c *AuthController) RegisterForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "register.html", gin.H{"title": "Register"})
}

// Register creates an account
func (c *AuthController) Register(ctx *gin.Context) {
	var form registerForm
	if err := middleware.BindForm(ctx, &form); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathRegister)
		return
	}

	if _, err := c.authService.Register(ctx.Request.Context(), form.Username, form.Password, form.ConfirmPassword); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathRegister)
		return
	}

	session.Get(ctx).AddFlash(session.FlashSuccess, services.MsgRegistered)
	ctx.Redirect(http.StatusSeeOther, PathLogin)
}

// LoginForm shows the login page
func (c *AuthController) LoginForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "login.html", gin.H{"title": "Login"})
}

// Login authenticates the browser session
func (c *AuthController) Login(ctx *gin.Context) {
	var form loginForm
	if err := middleware.BindForm(ctx, &form); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathLogin)
		return
	}

	user, err := c.authService.Login(ctx.Request.Context(), form.Username, form.Password)
	if err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathLogin)
		return
	}

	sess := session.Get(ctx)
	sess.SetUserID(user.ID)
	sess.AddFlash(session.FlashSuccess, services.MsgLoggedIn)
	ctx.Redirect(http.StatusSeeOther, PathIndex)
}

// Logout drops the user from the session
func (c *AuthController) Logout(ctx *gin.Context) {
	sess := session.Get(ctx)
	if userID, ok := sess.UserID(); ok {
		c.logger.Info().Int64("userID", userID).Msg("Logged out")
	}
	sess.ClearUser()
	sess.AddFlash(session.FlashSuccess, services.MsgLoggedOut)
	ctx.Redirect(http.StatusSeeOther, PathLogin)
}

// ForgotPasswordForm shows the reset request page
func (c *AuthController) ForgotPasswordForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "forgot_password.html", gin.H{"title": "Forgot password"})
}

// ForgotPassword issues a reset token for the submitted username
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var form forgotPasswordForm
	if err := middleware.BindForm(ctx, &form); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathForgotPassword)
		return
	}

	if err := c.authService.ForgotPassword(ctx.Request.Context(), form.Username); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathForgotPassword)
		return
	}

	session.Get(ctx).AddFlash(session.FlashSuccess, services.MsgResetLinkSent)
	ctx.Redirect(http.StatusSeeOther, PathLogin)
}

// ResetPasswordForm shows the new password page for a valid token. An
// invalid or expired token sends the browser to the login page.
func (c *AuthController) ResetPasswordForm(ctx *gin.Context) {
	token := ctx.Param("token")
	if _, err := c.authService.ValidateResetToken(ctx.Request.Context(), token); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, PathLogin)
		return
	}

	render(ctx, http.StatusOK, "reset_password.html", gin.H{"title": "Reset password", "token": token})
}

// ResetPassword consumes the token and stores the new password
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	token := ctx.Param("token")
	back := "/reset_password/" + url.PathEscape(token)

	var form resetPasswordForm
	if err := middleware.BindForm(ctx, &form); err != nil {
		middleware.HandleFormError(ctx, c.logger, err, back)
		return
	}

	if err := c.authService.ResetPassword(ctx.Request.Context(), token, form.NewPassword); err != nil {
		if errors.Is(err, apperrors.ErrInvalidPasswordResetToken) {
			back = PathLogin
		}
		middleware.HandleFormError(ctx, c.logger, err, back)
		return
	}

	session.Get(ctx).AddFlash(session.FlashSuccess, services.MsgPasswordResetDone)
	ctx.Redirect(http.StatusSeeOther, PathLogin)
}
