package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// ErrorType classifies client failures
type ErrorType int

const (
	// ConfigurationError is a malformed request detected before any socket activity
	ConfigurationError ErrorType = iota + 1
	// TransportError covers DNS, connect, handshake and I/O failures
	TransportError
	// TimeoutError is a transport failure caused by the idle timer
	TimeoutError
	// ApplicationError is a 4xx/5xx answer from the gateway
	ApplicationError
)

func (t ErrorType) String() string {
	switch t {
	case ConfigurationError:
		return "configuration"
	case TransportError:
		return "transport"
	case TimeoutError:
		return "timeout"
	case ApplicationError:
		return "application"
	default:
		return "unknown"
	}
}

// ClientError is implemented by every error returned from the client
type ClientError interface {
	error
	Type() ErrorType
}

// configurationError reports invalid options
type configurationError struct {
	field   string
	message string
	err     error
}

// NewConfigurationError creates a configuration error for field.
func NewConfigurationError(field, message string) ClientError {
	return &configurationError{field: field, message: message}
}

func newConfigurationErrorf(field string, cause error, format string, args ...any) ClientError {
	return &configurationError{field: field, message: fmt.Sprintf(format, args...), err: cause}
}

func (e *configurationError) Error() string {
	msg := "configuration error"
	if e.field != "" {
		msg += " (" + e.field + ")"
	}
	msg += ": " + e.message
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *configurationError) Type() ErrorType { return ConfigurationError }
func (e *configurationError) Unwrap() error   { return e.err }

// Field returns the option the error refers to
func (e *configurationError) Field() string { return e.field }

// transportError wraps a low-level failure
type transportError struct {
	message string
	err     error
}

// NewTransportError creates a transport error wrapping cause.
func NewTransportError(message string, cause error) ClientError {
	return &transportError{message: message, err: cause}
}

func (e *transportError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("transport error: %s: %v", e.message, e.err)
	}
	return "transport error: " + e.message
}

func (e *transportError) Type() ErrorType { return TransportError }
func (e *transportError) Unwrap() error   { return e.err }

// timeoutError is a transport error raised when the connection stayed idle too long
type timeoutError struct {
	transportError
	idle time.Duration
}

// NewTimeoutError creates a timeout error for a connection idle longer than idle.
func NewTimeoutError(message string, idle time.Duration, cause error) ClientError {
	return &timeoutError{transportError: transportError{message: message, err: cause}, idle: idle}
}

func (e *timeoutError) Error() string {
	msg := fmt.Sprintf("timeout error: %s (idle %v)", e.message, e.idle)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }
func (e *timeoutError) Timeout() bool   { return true }

// IdleTimeout returns the idle duration that expired
func (e *timeoutError) IdleTimeout() time.Duration { return e.idle }

// applicationError carries a 4xx/5xx response. The interpreted result is available
// through Result, whichever decoding path produced it.
type applicationError struct {
	result *Result
}

// NewApplicationError creates an application error from an interpreted failure response.
func NewApplicationError(result *Result) ClientError {
	return &applicationError{result: result}
}

func (e *applicationError) Error() string {
	if e.result == nil {
		return "application error"
	}
	msg := fmt.Sprintf("application error: %d %s", e.result.StatusCode, e.result.StatusMessage)
	if e.result.Kind == KindText && e.result.Text != "" {
		msg += ": " + truncate(e.result.Text, 256)
	}
	return msg
}

func (e *applicationError) Type() ErrorType { return ApplicationError }

// Result returns the interpreted response body
func (e *applicationError) Result() *Result { return e.result }

// StatusCode returns the HTTP status of the response
func (e *applicationError) StatusCode() int {
	if e.result == nil {
		return 0
	}
	return e.result.StatusCode
}

// IsErrorType reports whether err (or an error it wraps) is a ClientError of type t.
// A TimeoutError also matches TransportError.
func IsErrorType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	var ce ClientError
	if !errors.As(err, &ce) {
		return false
	}
	if ce.Type() == t {
		return true
	}
	return t == TransportError && ce.Type() == TimeoutError
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool { return IsErrorType(err, ConfigurationError) }

// IsTimeout reports whether err was caused by the idle timer.
func IsTimeout(err error) bool { return IsErrorType(err, TimeoutError) }

// AsApplicationError returns the interpreted result of a 4xx/5xx failure.
func AsApplicationError(err error) (*Result, bool) {
	var ae *applicationError
	if errors.As(err, &ae) {
		return ae.result, true
	}
	return nil, false
}

// IsHTTPStatusError reports whether err is an application error with the given status.
func IsHTTPStatusError(err error, statusCode int) bool {
	res, ok := AsApplicationError(err)
	return ok && res != nil && res.StatusCode == statusCode
}

// IsSuccessStatus reports whether statusCode is classified as success (1xx-3xx).
func IsSuccessStatus(statusCode int) bool {
	class := statusCode / 100
	return class >= 1 && class <= 3
}

// classifyTransportError maps a dispatch failure onto the taxonomy.
func classifyTransportError(err error, idle time.Duration) ClientError {
	var ce ClientError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return NewTimeoutError("connection idle", idle, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewTransportError("request aborted", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError("connection idle", idle, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewTransportError("lookup "+dnsErr.Name, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return NewTransportError("connect", err)
	}
	return NewTransportError("request failed", err)
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
