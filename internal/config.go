package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Redis    RedisConfig       `yaml:"redis"`
	Postgres PostgresConfig    `yaml:"postgres"`
	Auth     AuthConfig        `yaml:"auth"`
	Events   EventsConfig      `yaml:"events"`
	CORS     CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	case BackendRedis:
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	case BackendPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return err
		}
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the chart snapshot lives.
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	File    string      `yaml:"file"`
	Retry   RetryConfig `yaml:"retry"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendFile, BackendMemory, BackendSQLite, BackendRedis, BackendPostgres)),
		validation.Field(&c.Dir, validation.When(c.Backend == BackendFile, validation.Required)),
		validation.Field(&c.File, validation.When(c.Backend == BackendFile, validation.Required)),
		validation.Field(&c.Retry),
	)
}

// RetryConfig controls gateway retries. MaxAttempts of 1 disables them.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Validate validates the retry configuration.
func (c RetryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxAttempts, validation.Min(0), validation.Max(10)),
		validation.Field(&c.InitialInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxInterval, validation.Min(time.Duration(0))),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RedisConfig holds the Redis connection URL and the snapshot key.
type RedisConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// Validate validates the Redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.Key, validation.Required),
	)
}

// PostgresConfig holds the Postgres connection string.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Validate validates the Postgres configuration.
func (c *PostgresConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "jwt": HS256 bearer tokens signed with JWTSecret; edits need role=admin.
type AuthConfig struct {
	Mode      string        `yaml:"mode"`
	Token     string        `yaml:"token"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	if c.Mode == AuthModeJWT && len(c.JWTSecret) < 32 {
		return fmt.Errorf("auth: mode is %q but jwt_secret is shorter than 32 bytes", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken || c.Mode == AuthModeJWT
}

// EventsConfig configures the SSE broker.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     "./data",
			File:    "chart.json",
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./orgboard.db",
		},
		Redis: RedisConfig{
			Key: "orgboard:chart",
		},
		Auth: AuthConfig{
			Mode:     AuthModeDisabled,
			TokenTTL: time.Hour,
		},
		Events: EventsConfig{
			Throttle: 500 * time.Millisecond,
		},
	}
}
