// Package config loads controller and worker settings from the
// environment. Settings are read through viper so that .env files
// (loaded via godotenv) and real environment variables are
// interchangeable; every knob has a default matching the reference
// deployment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Controller holds the controller daemon settings.
type Controller struct {
	Listen           string        // HTTP listen address
	Replicas         int           // copies kept per key (R)
	HeartbeatTimeout time.Duration // silence before a worker is marked down
	CheckInterval    time.Duration // failure detector cadence
	RequestTimeout   time.Duration // per-request timeout for recovery calls
}

// Worker holds the worker daemon settings.
type Worker struct {
	Listen            string        // HTTP listen address
	Controller        string        // controller base URL
	Address           string        // address published in heartbeats
	ID                string        // stable worker identifier
	WriteQuorum       int           // acks required before a PUT succeeds
	DataDir           string        // directory for the durable store
	RequestTimeout    time.Duration // per-request timeout for outbound calls
	HeartbeatInterval time.Duration // heartbeat emitter cadence
}

// LoadController reads the controller configuration from the environment.
func LoadController() (Controller, error) {
	v := newViper()
	v.SetDefault("LISTEN", ":8000")
	v.SetDefault("REPLICAS", 3)
	v.SetDefault("HEARTBEAT_TIMEOUT", "6s")
	v.SetDefault("CHECK_INTERVAL", "2s")
	v.SetDefault("REQUEST_TIMEOUT", "2s")

	cfg := Controller{
		Listen:   v.GetString("LISTEN"),
		Replicas: v.GetInt("REPLICAS"),
	}
	var err error
	if cfg.HeartbeatTimeout, err = duration(v, "HEARTBEAT_TIMEOUT"); err != nil {
		return Controller{}, err
	}
	if cfg.CheckInterval, err = duration(v, "CHECK_INTERVAL"); err != nil {
		return Controller{}, err
	}
	if cfg.RequestTimeout, err = duration(v, "REQUEST_TIMEOUT"); err != nil {
		return Controller{}, err
	}
	if cfg.Replicas < 1 {
		return Controller{}, fmt.Errorf("REPLICAS must be at least 1, got %d", cfg.Replicas)
	}
	return cfg, nil
}

// LoadWorker reads the worker configuration from the environment.
func LoadWorker() (Worker, error) {
	v := newViper()
	v.SetDefault("LISTEN", ":8001")
	v.SetDefault("CONTROLLER", "http://localhost:8000")
	v.SetDefault("ADDRESS", "http://localhost:8001")
	v.SetDefault("ID", "w0")
	v.SetDefault("WRITE_QUORUM", 2)
	v.SetDefault("REQUEST_TIMEOUT", "2s")
	v.SetDefault("HEARTBEAT_INTERVAL", "2s")

	cfg := Worker{
		Listen:      v.GetString("LISTEN"),
		Controller:  strings.TrimRight(v.GetString("CONTROLLER"), "/"),
		Address:     strings.TrimRight(v.GetString("ADDRESS"), "/"),
		ID:          v.GetString("ID"),
		WriteQuorum: v.GetInt("WRITE_QUORUM"),
		DataDir:     v.GetString("DATA_DIR"),
	}
	var err error
	if cfg.RequestTimeout, err = duration(v, "REQUEST_TIMEOUT"); err != nil {
		return Worker{}, err
	}
	if cfg.HeartbeatInterval, err = duration(v, "HEARTBEAT_INTERVAL"); err != nil {
		return Worker{}, err
	}
	if cfg.ID == "" {
		return Worker{}, fmt.Errorf("ID must not be empty")
	}
	if cfg.WriteQuorum < 1 {
		return Worker{}, fmt.Errorf("WRITE_QUORUM must be at least 1, got %d", cfg.WriteQuorum)
	}
	if cfg.DataDir == "" {
		// Per-worker directory so co-located workers never share state.
		cfg.DataDir = "data_" + cfg.ID
	}
	return cfg, nil
}

// newViper builds a fresh viper instance over the process environment,
// after merging any .env / .env.local files into it.
func newViper() *viper.Viper {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.AutomaticEnv()
	return v
}

// duration parses a duration setting. Go duration strings ("1500ms") and
// bare numbers (seconds, matching the reference configuration) are both
// accepted.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("%s: cannot parse duration %q", key, raw)
}
