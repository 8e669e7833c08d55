package config

import "fmt"

// ConfigError reports missing or invalid configuration. It is raised before
// any network activity and is fatal.
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid config %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
