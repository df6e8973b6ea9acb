package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError describes one configuration problem with a hint on how to fix
// it. Messages are lowercase.
//
//nolint:revive // ConfigError reads better than Error at call sites
type ConfigError struct {
	Category string // "missing" or "invalid"
	Field    string // koanf key, e.g. "http.timeout"
	Message  string
	Action   string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	return strings.Join(parts, " ")
}

// Unwrap lets errors.Is match ErrInvalid.
func (e *ConfigError) Unwrap() error {
	return ErrInvalid
}

// NewMissingFieldError creates an error for a required missing field.
func NewMissingFieldError(field string) *ConfigError {
	return &ConfigError{
		Category: "missing",
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to %s", EnvVarName(field), field, DefaultFile),
	}
}

// NewInvalidFieldError creates an error for an invalid value.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{
		Category: "invalid",
		Field:    field,
		Message:  message,
	}
	if len(validOptions) > 0 {
		err.Action = fmt.Sprintf("must be one of: %s", strings.Join(validOptions, ", "))
	}
	return err
}

// EnvVarName returns the environment variable that overrides key.
func EnvVarName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
