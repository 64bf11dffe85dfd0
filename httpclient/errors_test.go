package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "configuration", ConfigurationError.String())
	assert.Equal(t, "transport", TransportError.String())
	assert.Equal(t, "timeout", TimeoutError.String())
	assert.Equal(t, "application", ApplicationError.String())
	assert.Equal(t, "unknown", ErrorType(0).String())
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("uri", "uri is required")
	assert.Equal(t, "configuration error (uri): uri is required", err.Error())
	assert.Equal(t, ConfigurationError, err.Type())
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsErrorType(err, TransportError))

	cause := errors.New("bad escape")
	wrapped := newConfigurationErrorf("uri", cause, "invalid %s", "uri")
	assert.Equal(t, "configuration error (uri): invalid uri: bad escape", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	var ce interface{ Field() string }
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "uri", ce.Field())
}

func TestTransportAndTimeoutErrors(t *testing.T) {
	cause := errors.New("connection reset")
	te := NewTransportError("request failed", cause)
	assert.Equal(t, "transport error: request failed: connection reset", te.Error())
	assert.ErrorIs(t, te, cause)
	assert.True(t, IsErrorType(te, TransportError))
	assert.False(t, IsTimeout(te))

	to := NewTimeoutError("connection idle", 2*time.Second, os.ErrDeadlineExceeded)
	assert.Contains(t, to.Error(), "idle 2s")
	assert.ErrorIs(t, to, os.ErrDeadlineExceeded)
	assert.True(t, IsTimeout(to))
	assert.True(t, IsErrorType(to, TransportError), "timeouts are transport errors")
	assert.False(t, IsErrorType(to, ApplicationError))

	var idle interface{ IdleTimeout() time.Duration }
	require.True(t, errors.As(to, &idle))
	assert.Equal(t, 2*time.Second, idle.IdleTimeout())
}

func TestApplicationError(t *testing.T) {
	res := &Result{Kind: KindText, StatusCode: 500, StatusMessage: "Internal Server Error", Text: "boom"}
	err := NewApplicationError(res)
	assert.Equal(t, "application error: 500 Internal Server Error: boom", err.Error())

	wrapped := fmt.Errorf("call failed: %w", err)
	got, ok := AsApplicationError(wrapped)
	require.True(t, ok)
	assert.Same(t, res, got)
	assert.True(t, IsHTTPStatusError(wrapped, 500))
	assert.False(t, IsHTTPStatusError(wrapped, 404))
	assert.True(t, IsErrorType(wrapped, ApplicationError))

	_, ok = AsApplicationError(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsErrorType(nil, ApplicationError))
	assert.False(t, IsErrorType(errors.New("plain"), TransportError))
}

func TestIsSuccessStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{0, false},
		{100, true},
		{200, true},
		{204, true},
		{302, true},
		{399, true},
		{400, false},
		{404, false},
		{500, false},
		{503, false},
		{600, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSuccessStatus(tt.status))
		})
	}
}

type fakeNetError struct{ timeout bool }

func (e fakeNetError) Error() string   { return "fake net error" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return false }

func TestClassifyTransportError(t *testing.T) {
	idle := time.Second
	tests := []struct {
		name     string
		err      error
		expected ErrorType
		contains string
	}{
		{
			name:     "deadline exceeded",
			err:      &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded},
			expected: TimeoutError,
			contains: "connection idle",
		},
		{
			name:     "context canceled",
			err:      fmt.Errorf("roundtrip: %w", context.Canceled),
			expected: TransportError,
			contains: "request aborted",
		},
		{
			name:     "net timeout",
			err:      fakeNetError{timeout: true},
			expected: TimeoutError,
		},
		{
			name:     "dns failure",
			err:      &net.DNSError{Err: "no such host", Name: "qlik.invalid", IsNotFound: true},
			expected: TransportError,
			contains: "lookup qlik.invalid",
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			expected: TransportError,
			contains: "connect",
		},
		{
			name:     "generic",
			err:      errors.New("tls: bad certificate"),
			expected: TransportError,
			contains: "request failed",
		},
		{
			name:     "already classified",
			err:      NewConfigurationError("uri", "bad"),
			expected: ConfigurationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyTransportError(tt.err, idle)
			assert.Equal(t, tt.expected, got.Type())
			if tt.contains != "" {
				assert.Contains(t, got.Error(), tt.contains)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
}
