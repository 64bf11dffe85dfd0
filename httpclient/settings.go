package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// TransportSettings is the concrete, immutable description of one call derived from Options.
// A fresh value with a fresh xrf key is produced for every call.
type TransportSettings struct {
	uri         string
	protocol    string
	hostname    string
	port        string
	path        string
	method      string
	xrfKey      string
	header      http.Header
	tlsConfig   *tls.Config
	trust       string
	idleTimeout time.Duration
	keepAlive   bool
}

// URI returns the caller supplied address, without the xrfkey parameter
func (s *TransportSettings) URI() string { return s.uri }

// Protocol returns "http" or "https"
func (s *TransportSettings) Protocol() string { return s.protocol }

// Hostname returns the target host without port
func (s *TransportSettings) Hostname() string { return s.hostname }

// Port returns the explicit port or the scheme default
func (s *TransportSettings) Port() string { return s.port }

// Path returns the escaped path and query, including the xrfkey parameter
func (s *TransportSettings) Path() string { return s.path }

// Method returns the HTTP method
func (s *TransportSettings) Method() string { return s.method }

// XrfKey returns the key sent in both the header and the query string
func (s *TransportSettings) XrfKey() string { return s.xrfKey }

// Header returns a copy of the request headers
func (s *TransportSettings) Header() http.Header { return s.header.Clone() }

// IdleTimeout returns the idle timer duration
func (s *TransportSettings) IdleTimeout() time.Duration { return s.idleTimeout }

// KeepAlive reports whether the connection may be reused
func (s *TransportSettings) KeepAlive() bool { return s.keepAlive }

// TLSConfig returns a copy of the client TLS configuration, nil for http
func (s *TransportSettings) TLSConfig() *tls.Config {
	if s.tlsConfig == nil {
		return nil
	}
	return s.tlsConfig.Clone()
}

// URL returns the full request URL including the xrfkey parameter
func (s *TransportSettings) URL() string {
	return s.protocol + "://" + net.JoinHostPort(s.hostname, s.port) + s.path
}
