// Package config handles configuration for the server component: flag
// defaults, an optional JSON or YAML file, GOPHBLOG_* environment variables
// and explicitly set command-line flags, merged with koanf.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the gophblog server.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	Auth     AuthConfig     `koanf:"auth"`
	S3       S3Config       `koanf:"s3"`
	Log      LogConfig      `koanf:"log"`
}

type HTTPConfig struct {
	Addr   string `koanf:"addr"`
	Prefix string `koanf:"prefix"`
	CORS   bool   `koanf:"cors"`
}

// GRPCConfig configures the health endpoint. An empty Addr disables it.
type GRPCConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	DSN            string        `koanf:"dsn"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// JWTConfig: Secret is the HS256 signing key. Do not reuse test values in prod.
type JWTConfig struct {
	Secret    string        `koanf:"secret"`
	ExpiresIn time.Duration `koanf:"expires_in"`
}

// AuthConfig tunes password hashing and the per-IP limiter on login/register.
type AuthConfig struct {
	BcryptCost int     `koanf:"bcrypt_cost"`
	RateLimit  float64 `koanf:"rate_limit"`
	RateBurst  int     `koanf:"rate_burst"`
}

// S3Config points at an S3-compatible backend (MinIO in development).
type S3Config struct {
	RootUser     string `koanf:"root_user"`
	RootPassword string `koanf:"root_password"`
	Bucket       string `koanf:"bucket"`
	Region       string `koanf:"region"`
	BaseEndpoint string `koanf:"base_endpoint"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var (
	ErrMissingSecret = errors.New("jwt.secret must be set")
	ErrMissingDSN    = errors.New("database.dsn must be set")
)

// Validate checks the settings needed to serve requests and normalizes the
// HTTP prefix.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, ErrMissingSecret)
	}
	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, fmt.Errorf("jwt.expires_in must be positive, got %s", c.JWT.ExpiresIn))
	}
	if c.Database.DSN == "" {
		errs = append(errs, ErrMissingDSN)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be in [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("auth.rate_limit and auth.rate_burst must be positive"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	c.HTTP.Prefix = strings.Trim(c.HTTP.Prefix, "/")

	return errors.Join(errs...)
}

// Defaults returns the values the command-line flags start from.
func Defaults() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":3000", Prefix: "api", CORS: true},
		GRPC:     GRPCConfig{Addr: ":50051"},
		Database: DatabaseConfig{ConnectTimeout: 30 * time.Second},
		JWT:      JWTConfig{ExpiresIn: 7 * 24 * time.Hour},
		Auth:     AuthConfig{BcryptCost: auth.DefaultBcryptCost, RateLimit: 5, RateBurst: 10},
		S3: S3Config{
			Bucket:       "covers",
			Region:       "us-east-1",
			BaseEndpoint: "http://127.0.0.1:9000/",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}
