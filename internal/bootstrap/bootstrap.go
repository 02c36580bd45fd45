package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/roster/internal/app/controllers"
	appMigrations "github.com/yigit/roster/internal/app/migrations"
	appRepos "github.com/yigit/roster/internal/app/repositories"
	appRoutes "github.com/yigit/roster/internal/app/routes"
	appServices "github.com/yigit/roster/internal/app/services"
	"github.com/yigit/roster/internal/config"
	"github.com/yigit/roster/internal/db"
	appMiddleware "github.com/yigit/roster/internal/middleware"
	pkgAuth "github.com/yigit/roster/internal/pkg/auth"
	"github.com/yigit/roster/internal/pkg/email"
	"github.com/yigit/roster/internal/pkg/filestorage"
	"github.com/yigit/roster/internal/pkg/helpers"
	"github.com/yigit/roster/internal/pkg/logger"
	"github.com/yigit/roster/internal/pkg/session"
	"github.com/yigit/roster/internal/pkg/validation"
	"github.com/yigit/roster/internal/seed"
	"github.com/yigit/roster/web"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	DB                *db.DB
	Repos             *appRepos.Repositories
	FileStorage       *filestorage.LocalStorage
	JWTService        *pkgAuth.JWTService
	Sessions          *session.Manager
	StudentService    *appServices.StudentService
	AuthService       *appServices.AuthService
	StudentController *appControllers.StudentController
	AuthController    *appControllers.AuthController
	HealthController  *appControllers.HealthController
	AuthLimiter       *appMiddleware.RateLimiter
	Logger            zerolog.Logger
}

// LoadConfigAndSetupLogger loads .env, the YAML configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("No .env file loaded")
	}

	configPath := config.GetEnv("CONFIG_PATH", "configs/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.DB, error) {
	lgr.Info().Str("driver", cfg.Database.Driver).Msg("Establishing database connection...")
	database, err := db.Open(cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database, lgr).Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.DB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{DB: database, Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.UniqueFilenames, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.Session.Secret,
		Lifetime:    helpers.DurationOr(cfg.Session.Lifetime, 24*time.Hour),
		TokenIssuer: "roster",
	})
	deps.Sessions = session.NewManager(deps.JWTService, session.Options{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
	}, lgr)

	deps.StudentService = appServices.NewStudentService(
		deps.Repos.StudentRepository,
		deps.FileStorage,
		validation.StudentRules{
			MinNameLength: cfg.Students.MinNameLength,
			MinAge:        cfg.Students.MinAge,
			MaxAge:        cfg.Students.MaxAge,
		},
		validation.PhotoRules{
			AllowedExtensions: cfg.NormalizedExtensions(),
			MaxFileSize:       cfg.Storage.MaxFileSize,
		},
		lgr,
	)

	deps.AuthService = appServices.NewAuthService(
		database,
		deps.Repos.UserRepository,
		pkgAuth.NewPasswordHasher(cfg.Auth.BcryptCost),
		email.NewLogNotifier(cfg.Auth.BaseURL, lgr),
		appServices.AuthServiceConfig{
			Rules: validation.AccountRules{
				MinUsernameLength: cfg.Auth.MinUsernameLength,
				MinPasswordLength: cfg.Auth.MinPasswordLength,
			},
			ResetTokenTTL: helpers.DurationOr(cfg.Auth.ResetTokenTTL, time.Hour),
		},
		lgr,
	)

	if err := seed.CreateDefaultData(context.Background(), deps.AuthService, cfg, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create seed account, proceeding anyway...")
	}

	deps.AuthLimiter = appMiddleware.NewRateLimiter(cfg.Security.AuthRateLimit, cfg.Security.AuthRateBurst, lgr)

	deps.StudentController = appControllers.NewStudentController(deps.StudentService, deps.AuthService, lgr)
	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.HealthController = appControllers.NewHealthController(database, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware, templates and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	}

	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxMultipartMemory
	router.SetHTMLTemplate(templates)
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestLogger(lgr),
		deps.Sessions.Middleware(),
		appMiddleware.CSRF(cfg.Security.CSRFEnabled, lgr),
	)

	appRoutes.SetupRouter(router,
		deps.StudentController,
		deps.AuthController,
		deps.HealthController,
		deps.AuthLimiter,
		cfg.Storage.UploadDir,
	)

	return router, nil
}
