package httpclient

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gaborage/qlik-request/xrf"
)

const fieldURI = "uri"

// KeySource produces xrf keys
type KeySource interface {
	Key() (string, error)
}

// RequestBuilder turns Options into TransportSettings
type RequestBuilder struct {
	keys KeySource
}

// NewRequestBuilder creates a builder drawing keys from keys; nil selects the default generator.
func NewRequestBuilder(keys KeySource) *RequestBuilder {
	if keys == nil {
		keys = xrf.Generator{}
	}
	return &RequestBuilder{keys: keys}
}

// Build derives transport settings from opts using the default key generator.
func Build(opts *Options) (*TransportSettings, error) {
	return NewRequestBuilder(nil).Build(opts)
}

// Build validates opts and returns fresh settings. All failures are configuration
// errors and happen before any network activity. opts is not modified.
func (b *RequestBuilder) Build(opts *Options) (*TransportSettings, error) {
	if opts == nil {
		return nil, NewConfigurationError("options", "options are required")
	}

	u, err := parseURI(opts.URI)
	if err != nil {
		return nil, err
	}

	protocol := strings.ToLower(u.Scheme)
	switch protocol {
	case "http":
		if hasCertificate(opts.Certificate) {
			return nil, NewConfigurationError(fieldCertificate, "https is required to use a client certificate")
		}
	case "https":
		if !completeCertificate(opts.Certificate) {
			return nil, NewConfigurationError(fieldCertificate, "https requires a certificate")
		}
	default:
		return nil, NewConfigurationError(fieldURI, "http/https required")
	}

	s := &TransportSettings{
		uri:         opts.URI,
		protocol:    protocol,
		hostname:    u.Hostname(),
		port:        u.Port(),
		method:      opts.Method,
		idleTimeout: opts.IdleTimeout,
		keepAlive:   opts.KeepAlive,
	}
	if s.port == "" {
		s.port = map[string]string{"http": "80", "https": "443"}[protocol]
	}
	if s.method == "" {
		s.method = DefaultMethod
	}
	s.method = strings.ToUpper(s.method)
	if s.idleTimeout <= 0 {
		s.idleTimeout = DefaultIdleTimeout
	}

	if protocol == "https" {
		if s.tlsConfig, err = clientTLSConfig(opts.Certificate, opts.InsecureSkipVerify); err != nil {
			return nil, err
		}
		s.tlsConfig.ServerName = s.hostname
		s.trust = trustDigest(opts.Certificate)
	}

	if s.xrfKey, err = b.keys.Key(); err != nil {
		return nil, newConfigurationErrorf("xrfkey", err, "cannot generate xrf key")
	}

	s.path = u.EscapedPath()
	if s.path == "" {
		s.path = "/"
	}
	s.path += "?"
	if u.RawQuery != "" {
		s.path += u.RawQuery + "&"
	}
	s.path += QueryXrfKey + "=" + url.QueryEscape(s.xrfKey)

	s.header = buildHeader(opts, s.xrfKey)
	return s, nil
}

// buildHeader returns a new header map; protocol headers override caller headers
func buildHeader(opts *Options, xrfKey string) http.Header {
	h := make(http.Header, len(opts.Headers)+4)
	for k, v := range opts.Headers {
		h.Set(k, v)
	}
	h.Set(HeaderXrfKey, xrfKey)
	h.Set("Content-Type", contentTypeJSON)
	if opts.Identity != nil {
		h.Set(HeaderQlikUser, opts.Identity.header())
	}
	if opts.Session != "" {
		h.Set("Cookie", opts.Session)
	}
	return h
}

func parseURI(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, NewConfigurationError(fieldURI, "uri is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newConfigurationErrorf(fieldURI, err, "invalid uri")
	}
	if !u.IsAbs() {
		return nil, NewConfigurationError(fieldURI, "uri must be absolute")
	}
	if u.Hostname() == "" && (strings.EqualFold(u.Scheme, "http") || strings.EqualFold(u.Scheme, "https")) {
		return nil, NewConfigurationError(fieldURI, "uri has no host")
	}
	return u, nil
}
