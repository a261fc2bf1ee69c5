// Package access decides what happens to a request hitting a role-scoped portal.
// It is pure: no I/O, no shared mutable state, safe for concurrent use.
package access

import (
	"fmt"
	"strings"
)

// Environment selects how portal URLs are resolved.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// EnvironmentFor maps the process-wide dev flag to an Environment.
func EnvironmentFor(isDev bool) Environment {
	if isDev {
		return Development
	}
	return Production
}

// UnmarshalText implements encoding.TextUnmarshaler for Environment.
func (e *Environment) UnmarshalText(text []byte) error {
	switch v := strings.ToLower(strings.TrimSpace(string(text))); v {
	case "development", "dev":
		*e = Development
	case "production", "prod":
		*e = Production
	default:
		return fmt.Errorf("invalid environment: %q (valid options: development, production)", v)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler for Environment.
func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e), nil
}

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool {
	return e == Development || e == Production
}
