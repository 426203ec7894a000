package config

import "fmt"

// ConfigError reports an invalid tunable discovered by Validate.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func fieldErr(field, reason string, args ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(reason, args...)}
}
