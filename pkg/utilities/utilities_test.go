package utilities

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_MAX_AGE_DAYS", "3")
	cfg := ConfigFromEnv()
	assert.True(t, cfg.Dev)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, 72*time.Hour, cfg.MaxAge)

	t.Setenv("LOG_DEV", "")
	t.Setenv("LOG_MAX_AGE_DAYS", "x")
	cfg = ConfigFromEnv()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 7*24*time.Hour, cfg.MaxAge)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.ErrorLevel, levelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("loud"))
}

func TestInit_FileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staff.log")
	lg, err := Init(Config{Level: "info", File: path, MaxAge: time.Hour})
	require.NoError(t, err)
	lg.Info("hello file")
	_ = lg.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello file")
}

func TestSnowflakeIDs(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "3")
	a, b := NewSnowflakeID(), NewSnowflakeID()
	assert.NotEqual(t, a, b)
	_, err := strconv.ParseInt(a, 10, 64)
	assert.NoError(t, err)

	assert.Len(t, NewKSUID(), 27)
	// out-of-range node falls back to a KSUID
	assert.Len(t, NewSnowflakeIDWithNode(5000), 27)
}
