package server

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Empty(t, cfg.AllowedOrigins)
	assert.EqualValues(t, 64*1024, cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

var configEnvKeys = []string{
	"SERVER_PORT", "ALLOWED_ORIGINS", "MAX_MESSAGE_SIZE", "SEND_BUFFER_SIZE",
	"RATE_LIMIT_BURST", "RATE_LIMIT_REFILL_INTERVAL", "LOG_LEVEL",
}

// clearConfigEnv unsets every variable the config reads; an empty value is
// not the same as unset for go-env.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestNewConfigFromEnv_Defaults_When_Unset(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := NewConfigFromEnv()

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestNewConfigFromEnv_Reads_Variables(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("ALLOWED_ORIGINS", " http://a.example , ,http://b.example:8443")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("SEND_BUFFER_SIZE", "16")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "3s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := NewConfigFromEnv()

	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example:8443"}, cfg.AllowedOrigins)
	assert.EqualValues(t, 2048, cfg.MaxMessageSize)
	assert.Equal(t, 16, cfg.SendBufferSize)
	assert.Equal(t, RateLimitConfig{Burst: 7, RefillInterval: 3 * time.Second}, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNewConfigFromEnv_Non_Positive_Values_Fall_Back(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_PORT", "0")
	t.Setenv("MAX_MESSAGE_SIZE", "-1")
	t.Setenv("SEND_BUFFER_SIZE", "0")
	t.Setenv("RATE_LIMIT_BURST", "-5")

	cfg, err := NewConfigFromEnv()

	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.EqualValues(t, 64*1024, cfg.MaxMessageSize)
	assert.Equal(t, 256, cfg.SendBufferSize)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestNewConfigFromEnv_Invalid_Number(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_PORT", "eighty")

	_, err := NewConfigFromEnv()

	require.Error(t, err)
}

func TestConfig_Sanitize_Copies(t *testing.T) {
	cfg := &Config{Port: 70000, AllowedOrigins: []string{"http://a.example"}}

	sanitized := cfg.sanitize()
	sanitized.AllowedOrigins[0] = "mutated"

	assert.Equal(t, DefaultPort, sanitized.Port)
	assert.Equal(t, 70000, cfg.Port)
	assert.Equal(t, "http://a.example", cfg.AllowedOrigins[0])
}

func TestParseOrigins(t *testing.T) {
	assert.Empty(t, parseOrigins(""))
	assert.Equal(t, []string{"*"}, parseOrigins(" * "))
	assert.Equal(t, []string{"http://a", "http://b"}, parseOrigins("http://a,,http://b,"))
}
