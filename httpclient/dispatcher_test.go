package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/qlik-request/testing/certs"
	"github.com/gaborage/qlik-request/testing/gateway"
)

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		expected string
	}{
		{name: "nil", body: nil, expected: ""},
		{name: "bytes verbatim", body: []byte("raw"), expected: "raw"},
		{name: "raw message", body: json.RawMessage(`{"a":1}`), expected: `{"a":1}`},
		{name: "struct", body: TicketRequest{UserDirectory: "CORP", UserID: "jdoe"}, expected: `{"UserDirectory":"CORP","UserId":"jdoe","Attributes":null}`},
		{name: "map", body: map[string]int{"value": 2}, expected: `{"value":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := encodeBody(tt.body)
			require.NoError(t, err)
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}

	_, err := encodeBody(make(chan int))
	assert.True(t, IsConfigurationError(err))
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "Not Found", statusMessage(&http.Response{StatusCode: 404, Status: "404 Not Found"}))
	assert.Equal(t, "Custom Reason", statusMessage(&http.Response{StatusCode: 409, Status: "409 Custom Reason"}))
	assert.Equal(t, "Internal Server Error", statusMessage(&http.Response{StatusCode: 500}))
}

func TestTransportKey(t *testing.T) {
	build := func(uri string, idle time.Duration) *TransportSettings {
		s, err := Build(&Options{URI: uri, IdleTimeout: idle, KeepAlive: true})
		require.NoError(t, err)
		return s
	}

	a := build("http://qlik.example.com/qrs/app", time.Second)
	b := build("http://qlik.example.com/qrs/stream", time.Second)
	c := build("http://qlik.example.com:4242/qrs/app", time.Second)
	d := build("http://qlik.example.com/qrs/app", 2*time.Second)

	assert.Equal(t, transportKey(a), transportKey(b), "path and xrf key do not matter")
	assert.NotEqual(t, transportKey(a), transportKey(c))
	assert.NotEqual(t, transportKey(a), transportKey(d))
}

func TestDispatcherInterceptors(t *testing.T) {
	g := newPlainGateway(t)
	s, err := Build(&Options{URI: g.URL() + gateway.PathAbout, Method: http.MethodGet})
	require.NoError(t, err)

	var seenStatus int
	d := NewDispatcher(Config{
		RequestInterceptors: []RequestInterceptor{
			func(_ context.Context, req *http.Request) error {
				req.Header.Set("X-Custom", "intercepted")
				return nil
			},
		},
		ResponseInterceptors: []ResponseInterceptor{
			func(_ context.Context, _ *http.Request, resp *http.Response) error {
				seenStatus = resp.StatusCode
				return nil
			},
		},
	})

	raw, err := d.Send(context.Background(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Equal(t, "OK", raw.Status)
	assert.Equal(t, s.URI(), raw.URI)
	assert.Equal(t, http.StatusOK, seenStatus)

	reqs := g.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "intercepted", reqs[0].Header.Get("X-Custom"))
}

func TestDispatcherInterceptorErrors(t *testing.T) {
	g := newPlainGateway(t)
	s, err := Build(&Options{URI: g.URL() + gateway.PathAbout, Method: http.MethodGet})
	require.NoError(t, err)

	failing := errors.New("denied")

	_, err = NewDispatcher(Config{
		RequestInterceptors: []RequestInterceptor{func(context.Context, *http.Request) error { return failing }},
	}).Send(context.Background(), s, nil)
	assert.ErrorIs(t, err, failing)
	assert.True(t, IsErrorType(err, TransportError))
	assert.Empty(t, g.Requests(), "nothing is sent when a request interceptor fails")

	_, err = NewDispatcher(Config{
		ResponseInterceptors: []ResponseInterceptor{func(context.Context, *http.Request, *http.Response) error { return failing }},
	}).Send(context.Background(), s, nil)
	assert.ErrorIs(t, err, failing)
	assert.True(t, IsErrorType(err, TransportError))
}

func TestDispatcherTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	g := newPlainGateway(t)
	c := New(Config{Tracing: true})
	_, err := c.Request(context.Background(), &Options{URI: g.URL() + gateway.PathAbout, Method: http.MethodGet}, nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, oteltrace.SpanKindClient, spans[0].SpanKind())
}

func TestDispatcherWithoutTracingRecordsNoSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	g := newPlainGateway(t)
	_, err := New(Config{}).Request(context.Background(), &Options{URI: g.URL() + gateway.PathAbout, Method: http.MethodGet}, nil)
	require.NoError(t, err)
	assert.Empty(t, recorder.Ended())
}

func TestTransportKeyTrustedCAs(t *testing.T) {
	other, err := certs.NewAuthority("Other CA")
	require.NoError(t, err)

	build := func(ca []byte) *TransportSettings {
		pemCert := testPEMCertificate(t)
		pemCert.CA = ca
		s, err := Build(&Options{URI: "https://qlik.example.com:4242/qrs/app", Certificate: pemCert, KeepAlive: true})
		require.NoError(t, err)
		return s
	}

	a := build(readTestdata(t, "root.pem"))
	b := build(readTestdata(t, "root.pem"))
	c := build(other.CertPEM())

	assert.Equal(t, transportKey(a), transportKey(b))
	assert.NotEqual(t, transportKey(a), transportKey(c), "a different CA needs its own connections")
}
