package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadControllerDefaults verifies the reference configuration.
func TestLoadControllerDefaults(t *testing.T) {
	cfg, err := LoadController()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Listen)
	assert.Equal(t, 3, cfg.Replicas)
	assert.Equal(t, 6*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, 2*time.Second, cfg.CheckInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

// TestLoadControllerOverrides verifies environment overrides, including
// both duration spellings.
func TestLoadControllerOverrides(t *testing.T) {
	t.Setenv("LISTEN", ":9000")
	t.Setenv("REPLICAS", "5")
	t.Setenv("HEARTBEAT_TIMEOUT", "10")      // bare seconds
	t.Setenv("CHECK_INTERVAL", "1500ms")     // Go duration
	t.Setenv("REQUEST_TIMEOUT", "0.5")       // fractional seconds

	cfg, err := LoadController()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 5, cfg.Replicas)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.CheckInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.RequestTimeout)
}

// TestLoadControllerRejectsBadValues verifies validation.
func TestLoadControllerRejectsBadValues(t *testing.T) {
	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("HEARTBEAT_TIMEOUT", "soon")
		_, err := LoadController()
		assert.Error(t, err)
	})

	t.Run("zero replicas", func(t *testing.T) {
		t.Setenv("REPLICAS", "0")
		_, err := LoadController()
		assert.Error(t, err)
	})
}

// TestLoadWorkerDefaults verifies worker defaults, including the
// per-worker data directory fallback.
func TestLoadWorkerDefaults(t *testing.T) {
	cfg, err := LoadWorker()
	require.NoError(t, err)

	assert.Equal(t, ":8001", cfg.Listen)
	assert.Equal(t, "http://localhost:8000", cfg.Controller)
	assert.Equal(t, "http://localhost:8001", cfg.Address)
	assert.Equal(t, "w0", cfg.ID)
	assert.Equal(t, 2, cfg.WriteQuorum)
	assert.Equal(t, "data_w0", cfg.DataDir)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.HeartbeatInterval)
}

// TestLoadWorkerOverrides verifies environment overrides and URL
// normalization.
func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("ID", "w7")
	t.Setenv("CONTROLLER", "http://ctrl:8000/")
	t.Setenv("ADDRESS", "http://me:8007/")
	t.Setenv("WRITE_QUORUM", "1")
	t.Setenv("DATA_DIR", "/var/lib/replikv")
	t.Setenv("HEARTBEAT_INTERVAL", "250ms")

	cfg, err := LoadWorker()
	require.NoError(t, err)

	assert.Equal(t, "w7", cfg.ID)
	assert.Equal(t, "http://ctrl:8000", cfg.Controller, "trailing slash is trimmed")
	assert.Equal(t, "http://me:8007", cfg.Address, "trailing slash is trimmed")
	assert.Equal(t, 1, cfg.WriteQuorum)
	assert.Equal(t, "/var/lib/replikv", cfg.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.HeartbeatInterval)
}

// TestLoadWorkerRejectsBadValues verifies validation.
func TestLoadWorkerRejectsBadValues(t *testing.T) {
	t.Run("zero quorum", func(t *testing.T) {
		t.Setenv("WRITE_QUORUM", "0")
		_, err := LoadWorker()
		assert.Error(t, err)
	})
}
