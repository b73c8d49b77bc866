// pkg/config/env.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by ApplyEnvironmentOverrides
const (
	EnvWorldWidth         = "ARENA_WORLD_WIDTH"
	EnvWorldHeight        = "ARENA_WORLD_HEIGHT"
	EnvTickRate           = "ARENA_TICK_RATE"
	EnvEventMode          = "ARENA_EVENT_MODE"
	EnvEventQueueCapacity = "ARENA_EVENT_QUEUE_CAPACITY"
	EnvBreakerMaxFailures = "ARENA_BREAKER_MAX_FAILURES"
	EnvBreakerTimeout     = "ARENA_BREAKER_TIMEOUT"
)

// ApplyEnvironmentOverrides replaces config values with any ARENA_*
// environment variables that are set. A malformed value is an error
// wrapping ErrInvalidConfig; the config is left partially updated.
func ApplyEnvironmentOverrides(config *ArenaConfig) error {
	if err := envFloat(EnvWorldWidth, &config.World.Width); err != nil {
		return err
	}
	if err := envFloat(EnvWorldHeight, &config.World.Height); err != nil {
		return err
	}
	if err := envInt(EnvTickRate, &config.TickRate); err != nil {
		return err
	}
	if mode, ok := lookupEnv(EnvEventMode); ok {
		config.Events.Mode = strings.ToLower(mode)
	}
	if err := envInt(EnvEventQueueCapacity, &config.Events.QueueCapacity); err != nil {
		return err
	}

	if raw, ok := lookupEnv(EnvBreakerMaxFailures); ok {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return envError(EnvBreakerMaxFailures, raw, err)
		}
		config.Events.BreakerMaxFailures = uint32(n)
	}

	if raw, ok := lookupEnv(EnvBreakerTimeout); ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return envError(EnvBreakerTimeout, raw, err)
		}
		config.Events.BreakerTimeoutMS = int(d / time.Millisecond)
	}

	return nil
}

func lookupEnv(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	raw = strings.TrimSpace(raw)
	return raw, ok && raw != ""
}

func envFloat(name string, dst *float64) error {
	raw, ok := lookupEnv(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return envError(name, raw, err)
	}
	*dst = v
	return nil
}

func envInt(name string, dst *int) error {
	raw, ok := lookupEnv(name)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return envError(name, raw, err)
	}
	*dst = v
	return nil
}

func envError(name, raw string, err error) error {
	return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, raw, err)
}
