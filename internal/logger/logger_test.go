package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disco/terminald/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid text config",
			cfg:     config.LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
			wantErr: false,
		},
		{
			name:    "valid json config",
			cfg:     config.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"},
			wantErr: false,
		},
		{
			name:    "warning alias",
			cfg:     config.LoggingConfig{Level: "warning", Format: "text", Output: "stdout"},
			wantErr: false,
		},
		{
			name:    "invalid level",
			cfg:     config.LoggingConfig{Level: "verbose", Format: "text", Output: "stdout"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			cfg:     config.LoggingConfig{Level: "info", Format: "xml", Output: "stdout"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.NoError(t, log.Close())
		})
	}
}

func TestNewDefault(t *testing.T) {
	log, err := NewDefault()
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, log.GetLevel())
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "terminald.log")

	log, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("session created", "sessionId", "abc")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "session created"))
	assert.True(t, strings.Contains(string(data), "abc"))

	// Close is idempotent once the handle is released.
	assert.NoError(t, log.Close())
}

func TestEnabled(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "warn", Format: "text", Output: "stdout"})
	require.NoError(t, err)

	assert.False(t, log.Enabled(LevelDebug))
	assert.False(t, log.Enabled(LevelInfo))
	assert.True(t, log.Enabled(LevelWarn))
	assert.True(t, log.Enabled(LevelError))
}

func TestWithDoesNotOwnFileHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminald.log")

	log, err := New(config.LoggingConfig{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)
	defer log.Close()

	derived := log.With("component", "test")
	require.NotNil(t, derived)
	assert.Equal(t, log.GetLevel(), derived.GetLevel())

	// Closing the derived logger must not release the root's file handle.
	require.NoError(t, derived.Close())
	log.Info("still writable")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "still writable"))
}

func TestGlobal(t *testing.T) {
	log := Global()
	require.NotNil(t, log)

	custom, err := NewDefault()
	require.NoError(t, err)
	SetGlobal(custom)
	assert.Same(t, custom, Global())
}
