package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yigit/roster/internal/app/controllers"
	"github.com/yigit/roster/internal/middleware"
	"github.com/yigit/roster/web"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	studentController *controllers.StudentController,
	authController *controllers.AuthController,
	healthController *controllers.HealthController,
	authLimiter *middleware.RateLimiter,
	uploadDir string,
) {
	// --- Public routes ---
	router.GET("/healthz", healthController.Check)
	router.Static(web.UploadsPath, uploadDir)

	// Account pages; form submissions are throttled per client
	account := router.Group("")
	account.Use(authLimiter.Middleware())
	{
		account.GET("/register", authController.RegisterForm)
		account.POST("/register", authController.Register)
		account.GET("/login", authController.LoginForm)
		account.POST("/login", authController.Login)
		account.GET("/logout", authController.Logout)
		account.GET("/forgot_password", authController.ForgotPasswordForm)
		account.POST("/forgot_password", authController.ForgotPassword)
		account.GET("/reset_password/:token", authController.ResetPasswordForm)
		account.POST("/reset_password/:token", authController.ResetPassword)
	}

	// --- Authenticated routes ---
	students := router.Group("")
	students.Use(middleware.AuthRequired(controllers.PathLogin))
	{
		students.GET("/", studentController.Index)
		students.GET("/add", studentController.AddForm)
		students.POST("/add", studentController.Add)
		students.GET("/update/:id", studentController.UpdateForm)
		students.POST("/update/:id", studentController.Update)
		students.POST("/delete/:id", studentController.Delete)
	}
}
