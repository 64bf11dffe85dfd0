// Package httpclient issues authenticated requests to the Qlik Sense REST gateways
// (QRS, QPS, ticket and session APIs).
//
// Every call carries a fresh xrf key in the X-Qlik-Xrfkey header and the xrfkey query
// parameter, an optional X-Qlik-User identity and session cookie, and, for https,
// a client certificate. Responses are classified by status code and decoded
// according to their Content-Type.
package httpclient

import (
	"context"
	"net/http"

	"github.com/gaborage/qlik-request/logger"
	"github.com/gaborage/qlik-request/trace"
)

// HeaderXRequestID is the default header for trace ID propagation
const HeaderXRequestID = trace.HeaderXRequestID

// Client issues gateway requests
type Client interface {
	// Request builds, sends and interprets one call under opts.Retry.
	// params, when non-nil, is sent as the JSON request body.
	Request(ctx context.Context, opts *Options, params any) (*Result, error)
	// Async starts Request in the background and returns a handle to its outcome.
	Async(ctx context.Context, opts *Options, params any) *Pending
	// Ticket requests a login ticket from a QPS ticket endpoint.
	Ticket(ctx context.Context, opts *Options, req TicketRequest) (*Ticket, error)
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor is called after receiving the response headers
type ResponseInterceptor func(ctx context.Context, req *http.Request, resp *http.Response) error

// Config holds the client configuration shared by all calls
type Config struct {
	// Logger defaults to a discarding logger
	Logger logger.Logger
	// KeySource defaults to the xrf package generator
	KeySource            KeySource
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// Tracing wraps the transport with OpenTelemetry client spans
	Tracing bool
}

// NewTraceIDInterceptor creates a request interceptor that sets the trace ID header
// from the context, generating one when missing. An existing header is preserved.
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor is NewTraceIDInterceptor with a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *http.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, trace.EnsureTraceID(ctx))
		}
		return nil
	}
}
