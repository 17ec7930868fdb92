package goCred

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the engine configuration. It is built once at process start,
// deep-copied by [Builder.Build] and never mutated afterwards.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Session  SessionConfig
	Jobs     JobsConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the two independent signing secrets and lifetimes.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls hashing cost and the minimum accepted length.
type PasswordConfig struct {
	Cost      int
	MinLength int
}

/*
====================================
SESSION CONFIG
====================================
*/

// RotationMode selects how concurrent refreshes of one user are resolved.
type RotationMode int

const (
	// RotationLastWriteWins compares then replaces without coordination.
	// Concurrent refreshes may all succeed; only the last stored token survives.
	RotationLastWriteWins RotationMode = iota
	// RotationCompareAndSwap writes the new token only if the slot still holds
	// the presented one. Losers get ErrRefreshInvalid.
	RotationCompareAndSwap
	// RotationPerUserLock serializes refreshes per user inside this process.
	RotationPerUserLock
)

func (m RotationMode) String() string {
	switch m {
	case RotationLastWriteWins:
		return "last-write-wins"
	case RotationCompareAndSwap:
		return "compare-and-swap"
	case RotationPerUserLock:
		return "per-user-lock"
	default:
		return fmt.Sprintf("rotation(%d)", int(m))
	}
}

// ParseRotationMode accepts the String forms plus the short aliases lww, cas and lock.
func ParseRotationMode(s string) (RotationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lww", "last-write-wins":
		return RotationLastWriteWins, nil
	case "cas", "compare-and-swap":
		return RotationCompareAndSwap, nil
	case "lock", "per-user-lock":
		return RotationPerUserLock, nil
	default:
		return 0, fmt.Errorf("unknown rotation mode %q", s)
	}
}

// SessionConfig selects the rotation strategy.
type SessionConfig struct {
	Rotation RotationMode
}

/*
====================================
JOBS / METRICS CONFIG
====================================
*/

// JobsConfig controls which lifecycle events enqueue a notification job.
type JobsConfig struct {
	NotifyOnRegister bool
	NotifyOnLogin    bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns development defaults: 15m access tokens, 7d refresh
// tokens, bcrypt cost 10, last-write-wins rotation. Secrets are empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Cost:      10,
			MinLength: 6,
		},
		Session: SessionConfig{
			Rotation: RotationLastWriteWins,
		},
		Jobs: JobsConfig{
			NotifyOnRegister: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the invariants Build relies on.
func (c *Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("jwt access secret required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("jwt refresh secret required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("jwt access and refresh secrets must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt TTLs must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("jwt refresh TTL must not be shorter than access TTL")
	}
	if c.Password.MinLength < 1 {
		return errors.New("password min length must be >= 1")
	}
	switch c.Session.Rotation {
	case RotationLastWriteWins, RotationCompareAndSwap, RotationPerUserLock:
	default:
		return fmt.Errorf("invalid session rotation mode %d", int(c.Session.Rotation))
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.AccessSecret = bytes.Clone(c.JWT.AccessSecret)
	out.JWT.RefreshSecret = bytes.Clone(c.JWT.RefreshSecret)
	return out
}
