package httpclient

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gaborage/qlik-request/httpclient/internal/tracking"
	"github.com/gaborage/qlik-request/logger"
	"github.com/gaborage/qlik-request/trace"
)

const (
	defaultMaxPayloadLogBytes = 1024

	logMessageRequest  = "Gateway request"
	logMessageResponse = "Gateway response"
)

type restClient struct {
	builder            *RequestBuilder
	dispatcher         *Dispatcher
	log                logger.Logger
	logPayloads        bool
	maxPayloadLogBytes int
}

var _ Client = (*restClient)(nil)

// New creates a client. A trace ID interceptor is always installed ahead of
// cfg.RequestInterceptors.
func New(cfg Config) Client {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	maxPayload := cfg.MaxPayloadLogBytes
	if maxPayload <= 0 {
		maxPayload = defaultMaxPayloadLogBytes
	}

	interceptors := make([]RequestInterceptor, 0, len(cfg.RequestInterceptors)+1)
	interceptors = append(interceptors, NewTraceIDInterceptorFor(cfg.TraceIDHeader))
	interceptors = append(interceptors, cfg.RequestInterceptors...)
	cfg.RequestInterceptors = interceptors

	return &restClient{
		builder:            NewRequestBuilder(cfg.KeySource),
		dispatcher:         NewDispatcher(cfg),
		log:                log.WithFields(map[string]any{"component": "httpclient"}),
		logPayloads:        cfg.LogPayloads,
		maxPayloadLogBytes: maxPayload,
	}
}

var defaultClient = sync.OnceValue(func() Client { return New(Config{}) })

// Request issues a call with a default client. See Client.Request.
func Request(ctx context.Context, opts *Options, params any) (*Result, error) {
	return defaultClient().Request(ctx, opts, params)
}

func (c *restClient) Request(ctx context.Context, opts *Options, params any) (*Result, error) {
	if opts == nil {
		return nil, NewConfigurationError("options", "options are required")
	}

	body, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	ctx = trace.WithTraceID(ctx, trace.EnsureTraceID(ctx))

	var (
		result *Result
		last   *TransportSettings
	)
	err = opts.Retry.run(ctx,
		func(attempt int) error {
			settings, err := c.builder.Build(opts)
			if err != nil {
				return err
			}
			last = settings
			result, err = c.attempt(ctx, settings, body, attempt)
			return err
		},
		func(err error, attempt int, wait time.Duration) {
			c.log.Warn().
				Err(err).
				Str("uri", logger.RedactURL(opts.URI)).
				Int("attempt", attempt+1).
				Int("max_retries", opts.Retry.MaxRetries).
				Dur("backoff", wait).
				Msg("Retrying gateway request")
			if last != nil {
				tracking.RecordRetry(ctx, last.method, last.hostname)
			}
		},
	)
	if err != nil {
		c.log.Error().Err(err).Str("uri", logger.RedactURL(opts.URI)).Msg("Gateway request failed")
		return nil, err
	}
	return result, nil
}

// attempt performs one exchange for already built settings
func (c *restClient) attempt(ctx context.Context, s *TransportSettings, body []byte, attempt int) (*Result, error) {
	traceID, _ := trace.IDFromContext(ctx)
	c.logRequest(s, body, traceID, attempt)

	var payload any
	if body != nil {
		payload = body
	}

	start := time.Now()
	raw, err := c.dispatcher.Send(ctx, s, payload)
	elapsed := time.Since(start)
	if err != nil {
		c.record(ctx, s, 0, err, elapsed)
		c.log.Warn().
			Err(err).
			Str("direction", "inbound").
			Str("method", s.method).
			Str("url", logger.RedactURL(s.uri)).
			Str("request_id", traceID).
			Dur("elapsed", elapsed).
			Msg("Gateway request error")
		return nil, err
	}

	res, err := Interpret(raw)
	c.record(ctx, s, raw.StatusCode, err, elapsed)
	c.logResponse(raw, elapsed, traceID)
	return res, err
}

func (c *restClient) logRequest(s *TransportSettings, body []byte, traceID string, attempt int) {
	event := c.log.Info().
		Str("direction", "outbound").
		Str("method", s.method).
		Str("url", logger.RedactURL(s.uri)).
		Str("request_id", traceID).
		Int("header_count", len(s.header)).
		Int("attempt", attempt)
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg(logMessageRequest)

	if c.logPayloads {
		c.logPayload(logMessageRequest, "outbound", s.header, body, traceID)
	}
}

func (c *restClient) logResponse(raw *RawResponse, elapsed time.Duration, traceID string) {
	event := c.log.Info().
		Str("direction", "inbound").
		Str("url", logger.RedactURL(raw.URI)).
		Int("status", raw.StatusCode).
		Dur("elapsed", elapsed).
		Str("request_id", traceID)
	if len(raw.Body) > 0 {
		event = event.Int("body_size", len(raw.Body))
	}
	event.Msg(logMessageResponse)

	if c.logPayloads {
		c.logPayload(logMessageResponse, "inbound", raw.Header, raw.Body, traceID)
	}
}

// logPayload writes headers and a body preview at debug level. Sensitive headers such as
// Cookie are masked by the logger filter.
func (c *restClient) logPayload(msg, direction string, header map[string][]string, body []byte, traceID string) {
	preview := body
	truncated := false
	if len(preview) > c.maxPayloadLogBytes {
		preview = preview[:c.maxPayloadLogBytes]
		truncated = true
	}
	c.log.Debug().
		Str("direction", direction).
		Str("request_id", traceID).
		Interface("headers", header).
		Int("body_size", len(body)).
		Str("body_truncated", strconv.FormatBool(truncated)).
		Bytes("body_preview", preview).
		Msg(msg)
}

func (c *restClient) record(ctx context.Context, s *TransportSettings, status int, err error, elapsed time.Duration) {
	var errorType string
	var ce ClientError
	switch {
	case err == nil:
	case IsErrorType(err, ApplicationError):
		errorType = strconv.Itoa(status)
	case errors.As(err, &ce):
		errorType = ce.Type().String()
	default:
		errorType = "unknown"
	}
	tracking.RecordRequest(ctx, tracking.Request{
		Method:     s.method,
		Scheme:     s.protocol,
		Host:       s.hostname,
		StatusCode: status,
		ErrorType:  errorType,
		Duration:   elapsed,
	})
}

// Pending is the handle of a request running in the background
type Pending struct {
	done   chan struct{}
	result *Result
	err    error
}

// Done is closed once the request has finished
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the request has finished and returns its outcome.
func (p *Pending) Wait() (*Result, error) {
	<-p.done
	return p.result, p.err
}

func (c *restClient) Async(ctx context.Context, opts *Options, params any) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.result, p.err = c.Request(ctx, opts, params)
	}()
	return p
}
