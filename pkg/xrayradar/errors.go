// errors.go defines the error taxonomy: config, DSN, and transport errors.

package xrayradar

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedConfigSource is returned by LoadConfig for a source
	// that is not a Config, *Config, map, or file path.
	ErrUnsupportedConfigSource = errors.New("xrayradar: unsupported config source type")

	// ErrEncode marks a TransportError caused by a value that cannot be serialized.
	ErrEncode = errors.New("xrayradar: event encode failed")

	// ErrTransportClosed is returned by SendEvent after Close.
	ErrTransportClosed = errors.New("xrayradar: transport is closed")

	// ErrNonSuccessStatus marks a TransportError caused by a non-2xx response.
	ErrNonSuccessStatus = errors.New("xrayradar: non-success status")
)

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("xrayradar: invalid config field %q: %s", e.Field, e.Reason)
}

// InvalidDsnError reports a destination address that is malformed or could
// not be parsed. DSN holds the redacted address.
type InvalidDsnError struct {
	DSN    string
	Reason string
	Err    error
}

func (e *InvalidDsnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xrayradar: invalid dsn %s: %s: %v", e.DSN, e.Reason, e.Err)
	}
	return fmt.Sprintf("xrayradar: invalid dsn %s: %s", e.DSN, e.Reason)
}

func (e *InvalidDsnError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed delivery. Op is one of "encode",
// "truncate", "compress", "request", "send" or "status".
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("xrayradar: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("xrayradar: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
