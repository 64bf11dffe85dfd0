package httpclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RawResponse is a fully received response before interpretation
type RawResponse struct {
	URI        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Dispatcher performs the network exchange described by TransportSettings.
// Without keep-alive every call gets its own transport and connection.
type Dispatcher struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	tracing              bool

	mu     sync.Mutex
	shared map[string]*http.Transport
}

// NewDispatcher creates a dispatcher using the interceptors and tracing flag of cfg.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		requestInterceptors:  cfg.RequestInterceptors,
		responseInterceptors: cfg.ResponseInterceptors,
		tracing:              cfg.Tracing,
		shared:               make(map[string]*http.Transport),
	}
}

// Send issues the request and reads the whole response body. body is JSON encoded
// unless it is a []byte or json.RawMessage; nil sends no body.
func (d *Dispatcher) Send(ctx context.Context, s *TransportSettings, body any) (*RawResponse, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, s.method, s.URL(), payload)
	if err != nil {
		return nil, newConfigurationErrorf(fieldURI, err, "cannot create request")
	}
	req.Header = s.Header()

	for _, interceptor := range d.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return nil, NewTransportError("request interceptor", err)
		}
	}

	tr, release := d.transport(s)
	defer release()

	var rt http.RoundTripper = tr
	if d.tracing {
		rt = otelhttp.NewTransport(tr)
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		return nil, classifyTransportError(err, s.idleTimeout)
	}
	defer resp.Body.Close()

	for _, interceptor := range d.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return nil, NewTransportError("response interceptor", err)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err, s.idleTimeout)
	}

	return &RawResponse{
		URI:        s.uri,
		StatusCode: resp.StatusCode,
		Status:     statusMessage(resp),
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// CloseIdleConnections closes connections kept open by keep-alive calls.
func (d *Dispatcher) CloseIdleConnections() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, tr := range d.shared {
		tr.CloseIdleConnections()
		delete(d.shared, key)
	}
}

// transport returns the transport for s and a release func to call after the exchange
func (d *Dispatcher) transport(s *TransportSettings) (*http.Transport, func()) {
	if !s.keepAlive {
		tr := newTransport(s)
		return tr, tr.CloseIdleConnections
	}

	key := transportKey(s)
	d.mu.Lock()
	defer d.mu.Unlock()
	tr, ok := d.shared[key]
	if !ok {
		tr = newTransport(s)
		d.shared[key] = tr
	}
	return tr, func() {}
}

func newTransport(s *TransportSettings) *http.Transport {
	return &http.Transport{
		DialContext:       idleDialer(s.idleTimeout),
		TLSClientConfig:   s.TLSConfig(),
		DisableKeepAlives: !s.keepAlive,
		IdleConnTimeout:   s.idleTimeout,
	}
}

// transportKey identifies settings that can share pooled connections: same endpoint,
// same client certificate and the same trusted CAs
func transportKey(s *TransportSettings) string {
	var b strings.Builder
	b.WriteString(s.protocol)
	b.WriteByte('|')
	b.WriteString(s.hostname)
	b.WriteByte(':')
	b.WriteString(s.port)
	b.WriteByte('|')
	b.WriteString(s.idleTimeout.String())
	if s.tlsConfig != nil {
		h := sha256.New()
		for _, c := range s.tlsConfig.Certificates {
			for _, der := range c.Certificate {
				h.Write(der)
			}
		}
		b.WriteByte('|')
		b.WriteString(hex.EncodeToString(h.Sum(nil)))
		b.WriteByte('|')
		b.WriteString(s.trust)
		b.WriteByte('|')
		b.WriteString(strconv.FormatBool(s.tlsConfig.InsecureSkipVerify))
	}
	return b.String()
}

func encodeBody(body any) (io.Reader, error) {
	data, err := encodeParams(body)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return http.NoBody, nil
	}
	return bytes.NewReader(data), nil
}

// encodeParams returns the JSON request body for params; nil means no body.
// []byte and json.RawMessage are used verbatim.
func encodeParams(params any) ([]byte, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		data, err := json.Marshal(params)
		if err != nil {
			return nil, newConfigurationErrorf("params", err, "cannot encode request body")
		}
		return data, nil
	}
}

// statusMessage strips the numeric code from resp.Status ("404 Not Found" -> "Not Found")
func statusMessage(resp *http.Response) string {
	msg := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}
