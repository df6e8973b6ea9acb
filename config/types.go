package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the restbricks configuration. Keys contain no underscores so
// that RESTBRICKS_HTTP_LOGPAYLOADS maps cleanly onto http.logpayloads.
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client"`
	HTTP   HTTPConfig   `koanf:"http" json:"http" yaml:"http"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log"`

	// k keeps the loaded sources for ad-hoc lookups
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// ClientConfig configures rest.Client.
type ClientConfig struct {
	// Timeout is the per-attempt timeout for requests that set none.
	// Default: 2s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
}

// HTTPConfig configures the net/http transport.
type HTTPConfig struct {
	// Timeout bounds a whole round trip at the http.Client level.
	// Default: 30s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`

	// LogPayloads logs request and response bodies at debug level.
	LogPayloads bool `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads"`

	// MaxPayloadLogBytes truncates logged bodies. Default: 1024.
	MaxPayloadLogBytes int `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" validate:"gte=0"`

	// TraceIDHeader carries the request ID. Default: X-Request-ID.
	TraceIDHeader string `koanf:"traceidheader" json:"traceidheader" yaml:"traceidheader" validate:"required,header_name"`

	// W3CTrace adds traceparent/tracestate headers.
	W3CTrace bool `koanf:"w3ctrace" json:"w3ctrace" yaml:"w3ctrace"`

	// Tracing wraps the round tripper with otelhttp.
	Tracing bool `koanf:"tracing" json:"tracing" yaml:"tracing"`

	// Headers are added to every request unless the request sets them.
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers" validate:"dive,keys,header_name,endkeys"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
