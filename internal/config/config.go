package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Fallback secrets used when none are configured. They are public and must
// never protect a production deployment.
const (
	DefaultJWTSecret        = "dev-secret-change-in-production"
	DefaultJWTRefreshSecret = "dev-refresh-secret-change-in-production"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Static   StaticConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

type StaticConfig struct {
	Dir string
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	refreshExp, err := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRATION: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "4000"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "mini_social"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", DefaultJWTSecret),
			RefreshSecret:          getEnv("JWT_REFRESH_SECRET", DefaultJWTRefreshSecret),
			Expiration:             jwtExp,
			RefreshTokenExpiration: refreshExp,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Static: StaticConfig{
			Dir: getEnv("STATIC_DIR", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Expiration <= 0 || c.JWT.RefreshTokenExpiration <= 0 {
		return errors.New("token expirations must be positive")
	}
	if c.JWT.Secret == c.JWT.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.IsProduction() && c.UsesDefaultSecrets() {
		return errors.New("default JWT secrets are not allowed in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) UsesDefaultSecrets() bool {
	return c.JWT.Secret == DefaultJWTSecret || c.JWT.RefreshSecret == DefaultJWTRefreshSecret
}

func (c *Config) CouchURL() string {
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(c.Database.Host, c.Database.Port),
	}
	if c.Database.User != "" {
		u.User = url.UserPassword(c.Database.User, c.Database.Password)
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
