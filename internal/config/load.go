package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Load builds a Config from defaults, the JSON file named by -c, the
// environment and args. A nil environ reads the process environment.
func Load(args []string, environ map[string]string) (Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("gocred-server", flag.ContinueOnError)
	configFile := fs.String("c", "", "path to a JSON config file")
	port := fs.Int("port", cfg.Port, "HTTP listen port")
	dsn := fs.String("d", cfg.DatabaseURL, "database DSN")
	driver := fs.String("driver", cfg.DatabaseDriver, "database driver (postgres|sqlite)")
	redisHost := fs.String("redis-host", cfg.RedisHost, "Redis host")
	backend := fs.String("session-backend", cfg.SessionBackend, "refresh slot backend (redis|sql)")
	rotation := fs.String("rotation", cfg.SessionRotation, "refresh rotation (lww|cas|lock)")
	dev := fs.Bool("dev", false, "in-process Redis and development secrets")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configFile != "" {
		if err := loadJSON(*configFile, &cfg); err != nil {
			return Config{}, err
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "d":
			cfg.DatabaseURL = *dsn
		case "driver":
			cfg.DatabaseDriver = *driver
		case "redis-host":
			cfg.RedisHost = *redisHost
		case "session-backend":
			cfg.SessionBackend = *backend
		case "rotation":
			cfg.SessionRotation = *rotation
		case "dev":
			cfg.Dev = *dev
		}
	})

	cfg.DatabaseDriver = strings.ToLower(cfg.DatabaseDriver)
	cfg.applyDevDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadJSON overlays the fields present in path onto cfg.
func loadJSON(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
