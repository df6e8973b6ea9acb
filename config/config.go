// Package config loads restbricks settings from defaults, an optional YAML
// file and RESTBRICKS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables read by Load.
	EnvPrefix = "RESTBRICKS_"
	// DefaultFile is the YAML file Load reads when present.
	DefaultFile = "restbricks.yaml"

	defaultClientTimeout      = 2 * time.Second
	defaultHTTPTimeout        = 30 * time.Second
	defaultMaxPayloadLogBytes = 1024
	defaultTraceIDHeader      = "X-Request-ID"
	defaultLogLevel           = "info"
)

// Load reads DefaultFile from the working directory (if it exists) and the
// environment on top of the defaults.
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile is Load with an explicit YAML path. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return build(k)
}

// LoadBytes parses YAML content over the defaults. The environment is not
// consulted, which keeps embedded and test configs deterministic.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return build(k)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{Timeout: defaultClientTimeout},
		HTTP: HTTPConfig{
			Timeout:            defaultHTTPTimeout,
			MaxPayloadLogBytes: defaultMaxPayloadLogBytes,
			TraceIDHeader:      defaultTraceIDHeader,
			W3CTrace:           true,
		},
		Log: LogConfig{Level: defaultLogLevel},
	}
}

func build(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey turns RESTBRICKS_HTTP_LOGPAYLOADS into http.logpayloads.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout": defaultClientTimeout.String(),

		"http.timeout":            defaultHTTPTimeout.String(),
		"http.logpayloads":        false,
		"http.maxpayloadlogbytes": defaultMaxPayloadLogBytes,
		"http.traceidheader":      defaultTraceIDHeader,
		"http.w3ctrace":           true,
		"http.tracing":            false,

		"log.level":  defaultLogLevel,
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
