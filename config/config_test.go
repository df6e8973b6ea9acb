package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMissingFile = "does-not-exist.yaml"
	testTraceHeader = "X-Correlation-ID"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), testMissingFile))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	def := Default()
	assert.Equal(t, def.Client, cfg.Client)
	assert.Equal(t, def.HTTP, cfg.HTTP)
	assert.Equal(t, def.Log, cfg.Log)

	assert.Equal(t, 2*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 1024, cfg.HTTP.MaxPayloadLogBytes)
	assert.Equal(t, "X-Request-ID", cfg.HTTP.TraceIDHeader)
	assert.True(t, cfg.HTTP.W3CTrace)
	assert.False(t, cfg.HTTP.LogPayloads)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("RESTBRICKS_CLIENT_TIMEOUT", "500ms")
	t.Setenv("RESTBRICKS_HTTP_LOGPAYLOADS", "true")
	t.Setenv("RESTBRICKS_HTTP_MAXPAYLOADLOGBYTES", "64")
	t.Setenv("RESTBRICKS_HTTP_TRACEIDHEADER", testTraceHeader)
	t.Setenv("RESTBRICKS_HTTP_HEADERS_ACCEPT", "application/json")
	t.Setenv("RESTBRICKS_LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_LOG_LEVEL", "error")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), testMissingFile))
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Client.Timeout)
	assert.True(t, cfg.HTTP.LogPayloads)
	assert.Equal(t, 64, cfg.HTTP.MaxPayloadLogBytes)
	assert.Equal(t, testTraceHeader, cfg.HTTP.TraceIDHeader)
	assert.Equal(t, map[string]string{"accept": "application/json"}, cfg.HTTP.Headers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFileEnvironmentWinsOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restbricks.yaml")
	content := `
client:
  timeout: 750ms
http:
  tracing: true
  headers:
    User-Agent: restbricks-test
log:
  level: warn
  pretty: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("RESTBRICKS_LOG_LEVEL", "error")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Client.Timeout)
	assert.True(t, cfg.HTTP.Tracing)
	assert.Equal(t, "restbricks-test", cfg.HTTP.Headers["User-Agent"])
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client: [unterminated"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load")
}

func TestLoadBytes(t *testing.T) {
	t.Setenv("RESTBRICKS_LOG_LEVEL", "error")

	cfg, err := LoadBytes([]byte("http:\n  w3ctrace: false\n  timeout: 5s\n"))
	require.NoError(t, err)

	assert.False(t, cfg.HTTP.W3CTrace)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "info", cfg.Log.Level, "environment is ignored")
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		field    string
		category string
	}{
		{"non-positive client timeout", "client:\n  timeout: 0s\n", "client.timeout", "invalid"},
		{"negative payload limit", "http:\n  maxpayloadlogbytes: -1\n", "http.maxpayloadlogbytes", "invalid"},
		{"empty trace header", "http:\n  traceidheader: \"\"\n", "http.traceidheader", "missing"},
		{"bad trace header", "http:\n  traceidheader: \"bad header\"\n", "http.traceidheader", "invalid"},
		{"bad default header name", "http:\n  headers:\n    \"bad header\": x\n", "http.headers", "invalid"},
		{"unknown log level", "log:\n  level: verbose\n", "log.level", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, cfgErr.Field, tt.field)
			assert.Equal(t, tt.category, cfgErr.Category)
		})
	}
}

func TestValidateDefault(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewInvalidFieldError("log.level", "unsupported value \"verbose\"", []string{"debug", "info"})
	assert.Equal(t, `config_invalid: log.level unsupported value "verbose" must be one of: debug, info`, err.Error())

	missing := NewMissingFieldError("http.traceidheader")
	assert.Equal(t, "config_missing: http.traceidheader required set RESTBRICKS_HTTP_TRACEIDHEADER env var or add http.traceidheader to restbricks.yaml", missing.Error())
	assert.ErrorIs(t, missing, ErrInvalid)
}

func TestGetters(t *testing.T) {
	cfg, err := LoadBytes([]byte("http:\n  maxpayloadlogbytes: 256\n  headers:\n    Accept: text/plain\n"))
	require.NoError(t, err)

	assert.Equal(t, "X-Request-ID", cfg.GetString("http.traceidheader"))
	assert.Equal(t, "fallback", cfg.GetString("custom.missing", "fallback"))
	assert.Equal(t, 256, cfg.GetInt("http.maxpayloadlogbytes"))
	assert.Equal(t, 7, cfg.GetInt("custom.missing", 7))
	assert.True(t, cfg.GetBool("http.w3ctrace"))
	assert.True(t, cfg.GetBool("custom.missing", true))
	assert.Equal(t, 2*time.Second, cfg.GetDuration("client.timeout"))
	assert.Equal(t, time.Minute, cfg.GetDuration("custom.missing", time.Minute))
	assert.True(t, cfg.Exists("http.headers.Accept"))
	assert.Contains(t, cfg.All(), "log.level")

	v, err := cfg.GetRequiredString("log.level")
	require.NoError(t, err)
	assert.Equal(t, "info", v)

	_, err = cfg.GetRequiredString("custom.missing")
	assert.Error(t, err)

	var httpCfg HTTPConfig
	require.NoError(t, cfg.Unmarshal("http", &httpCfg))
	assert.Equal(t, "text/plain", httpCfg.Headers["Accept"])
}

func TestNilConfigGetters(t *testing.T) {
	var cfg *Config
	assert.Equal(t, "x", cfg.GetString("a", "x"))
	assert.False(t, cfg.Exists("a"))
	assert.Nil(t, cfg.All())
	_, err := cfg.GetRequiredString("a")
	assert.Error(t, err)
	assert.Error(t, cfg.Unmarshal("", &HTTPConfig{}))
}
