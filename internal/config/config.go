package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port               string `yaml:"port" env:"SERVER_PORT"`
		Mode               string `yaml:"mode" env:"SERVER_MODE"`
		ReadTimeout        string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout       string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		MaxMultipartMemory int64  `yaml:"max_multipart_memory" env:"SERVER_MAX_MULTIPART_MEMORY"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Path            string `yaml:"path" env:"DB_PATH"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Storage struct {
		UploadDir         string   `yaml:"upload_dir" env:"STORAGE_UPLOAD_DIR"`
		MaxFileSize       int64    `yaml:"max_file_size" env:"STORAGE_MAX_FILE_SIZE"`
		AllowedExtensions []string `yaml:"allowed_extensions" env:"STORAGE_ALLOWED_EXTENSIONS"`
		UniqueFilenames   bool     `yaml:"unique_filenames" env:"STORAGE_UNIQUE_FILENAMES"`
	} `yaml:"storage"`

	Students struct {
		MinNameLength int `yaml:"min_name_length" env:"STUDENTS_MIN_NAME_LENGTH"`
		MinAge        int `yaml:"min_age" env:"STUDENTS_MIN_AGE"`
		MaxAge        int `yaml:"max_age" env:"STUDENTS_MAX_AGE"`
	} `yaml:"students"`

	Auth struct {
		MinUsernameLength int    `yaml:"min_username_length" env:"AUTH_MIN_USERNAME_LENGTH"`
		MinPasswordLength int    `yaml:"min_password_length" env:"AUTH_MIN_PASSWORD_LENGTH"`
		ResetTokenTTL     string `yaml:"reset_token_ttl" env:"AUTH_RESET_TOKEN_TTL"`
		BcryptCost        int    `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST"`
		BaseURL           string `yaml:"base_url" env:"AUTH_BASE_URL"`
	} `yaml:"auth"`

	Session struct {
		Secret     string `yaml:"secret" env:"SECRET_KEY"`
		CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
		Lifetime   string `yaml:"lifetime" env:"SESSION_LIFETIME"`
		Secure     bool   `yaml:"secure" env:"SESSION_SECURE"`
	} `yaml:"session"`

	Security struct {
		CSRFEnabled   bool    `yaml:"csrf_enabled" env:"SECURITY_CSRF_ENABLED"`
		AuthRateLimit float64 `yaml:"auth_rate_limit" env:"SECURITY_AUTH_RATE_LIMIT"`
		AuthRateBurst int     `yaml:"auth_rate_burst" env:"SECURITY_AUTH_RATE_BURST"`
	} `yaml:"security"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Seed struct {
		Username string `yaml:"username" env:"SEED_USERNAME"`
		Password string `yaml:"password" env:"SEED_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; defaults and env are enough to boot
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "5000"
	config.Server.Mode = "development"
	config.Server.ReadTimeout = "10s"
	config.Server.WriteTimeout = "10s"
	config.Server.MaxMultipartMemory = 8 << 20

	// Database defaults
	config.Database.Driver = DriverSQLite
	config.Database.Path = "siswa.db"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "roster"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 1
	config.Database.MaxOpenConns = 1
	config.Database.ConnMaxLifetime = "1h"

	// Storage defaults
	config.Storage.UploadDir = "static/uploads"
	config.Storage.MaxFileSize = 2 * 1024 * 1024
	config.Storage.AllowedExtensions = []string{"png", "jpg", "jpeg"}

	// Student rules
	config.Students.MinNameLength = 3
	config.Students.MinAge = 10
	config.Students.MaxAge = 50

	// Account rules
	config.Auth.MinUsernameLength = 3
	config.Auth.MinPasswordLength = 6
	config.Auth.ResetTokenTTL = "1h"
	config.Auth.BcryptCost = 12
	config.Auth.BaseURL = "http://localhost:5000"

	// Session defaults
	config.Session.Secret = "secretkey123"
	config.Session.CookieName = "session"
	config.Session.Lifetime = "24h"

	config.Security.CSRFEnabled = true
	config.Security.AuthRateBurst = 5

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverSQLite:
		if config.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}

	if config.Storage.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}

	if config.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}

	if len(config.Storage.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}

	if config.Students.MinAge > config.Students.MaxAge {
		return fmt.Errorf("student min age %d exceeds max age %d", config.Students.MinAge, config.Students.MaxAge)
	}

	for name, value := range map[string]string{
		"reset token ttl":   config.Auth.ResetTokenTTL,
		"session lifetime":  config.Session.Lifetime,
		"conn max lifetime": config.Database.ConnMaxLifetime,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	return nil
}

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetSQLiteDSN returns the sqlite data source. Times are written in one
// sortable layout and concurrent requests wait for the file lock.
func (c *Config) GetSQLiteDSN() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_time_format=sqlite", c.Database.Path)
}

// NormalizedExtensions returns the allowed extensions lower-cased and without a leading dot.
func (c *Config) NormalizedExtensions() []string {
	out := make([]string, 0, len(c.Storage.AllowedExtensions))
	for _, ext := range c.Storage.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
