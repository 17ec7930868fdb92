package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/dbx"
)

// Session backends.
const (
	BackendRedis = "redis"
	BackendSQL   = "sql"
)

// Config holds runtime settings for gocred-server.
//
// Env tags keep the variable names of the deployed service so existing
// environment files keep working.
type Config struct {
	Port        int    `json:"port" env:"PORT"`
	Environment string `json:"environment" env:"NODE_ENV"`

	DatabaseDriver string `json:"database_driver" env:"DATABASE_DRIVER"`
	DatabaseURL    string `json:"database_url" env:"DATABASE_URL"`

	RedisHost     string `json:"redis_host" env:"REDIS_HOST"`
	RedisPort     int    `json:"redis_port" env:"REDIS_PORT"`
	RedisPassword string `json:"redis_password" env:"REDIS_PASSWORD"`

	JWTSecret           string   `json:"jwt_secret" env:"JWT_SECRET"`
	JWTExpiresIn        Duration `json:"jwt_expires_in" env:"JWT_EXPIRES_IN"`
	JWTRefreshSecret    string   `json:"jwt_refresh_secret" env:"JWT_REFRESH_SECRET"`
	JWTRefreshExpiresIn Duration `json:"jwt_refresh_expires_in" env:"JWT_REFRESH_EXPIRES_IN"`

	BcryptCost      int    `json:"bcrypt_cost" env:"BCRYPT_COST"`
	SessionBackend  string `json:"session_backend" env:"SESSION_BACKEND"`
	SessionRotation string `json:"session_rotation" env:"SESSION_ROTATION"`

	ShutdownTimeout Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// Dev runs Redis in-process and relaxes the secret requirement. Flag only.
	Dev bool `json:"-"`
}

// Defaults returns development settings. The database is a local SQLite file.
func Defaults() Config {
	return Config{
		Port:                3000,
		Environment:         "development",
		DatabaseDriver:      string(dbx.SQLite),
		DatabaseURL:         "file:gocred.db",
		RedisHost:           "localhost",
		RedisPort:           6379,
		JWTExpiresIn:        Duration(15 * time.Minute),
		JWTRefreshExpiresIn: Duration(7 * 24 * time.Hour),
		BcryptCost:          10,
		SessionBackend:      BackendRedis,
		SessionRotation:     goCred.RotationLastWriteWins.String(),
		ShutdownTimeout:     Duration(10 * time.Second),
	}
}

// Dev-mode signing secrets. Never used unless Dev is set and the secrets are empty.
const (
	devAccessSecret  = "gocred-dev-access-secret"
	devRefreshSecret = "gocred-dev-refresh-secret"
)

func (c *Config) applyDevDefaults() {
	if !c.Dev {
		return
	}
	if c.JWTSecret == "" {
		c.JWTSecret = devAccessSecret
	}
	if c.JWTRefreshSecret == "" {
		c.JWTRefreshSecret = devRefreshSecret
	}
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := dbx.ParseDialect(c.DatabaseDriver); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return errors.New("database url required")
	}
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	switch c.SessionBackend {
	case BackendRedis, BackendSQL:
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	if _, err := goCred.ParseRotationMode(c.SessionRotation); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

func (c Config) Dialect() dbx.Dialect {
	d, _ := dbx.ParseDialect(c.DatabaseDriver)
	return d
}

// EngineConfig maps server settings onto the engine configuration. The result
// still goes through goCred.Config.Validate at Build time.
func (c Config) EngineConfig() (goCred.Config, error) {
	rotation, err := goCred.ParseRotationMode(c.SessionRotation)
	if err != nil {
		return goCred.Config{}, err
	}
	cfg := goCred.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(c.JWTSecret)
	cfg.JWT.RefreshSecret = []byte(c.JWTRefreshSecret)
	cfg.JWT.AccessTTL = c.JWTExpiresIn.Std()
	cfg.JWT.RefreshTTL = c.JWTRefreshExpiresIn.Std()
	cfg.Password.Cost = c.BcryptCost
	cfg.Session.Rotation = rotation
	return cfg, nil
}
