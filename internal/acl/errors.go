package acl

import (
	"errors"
	"fmt"
)

// CodeInvalidConfiguration is the error code for fatal configuration
// problems. Unlike the per-invocation codes, this one aborts startup.
const CodeInvalidConfiguration = "InvalidConfiguration"

// ConfigError reports malformed capability or permission data detected at
// load time. It is fatal: the application must refuse to start rather
// than run with a partially loaded policy.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %v", e.Reason, e.Err)
	}
	return "invalid configuration: " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// configErrorf builds a ConfigError from a format string.
func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
