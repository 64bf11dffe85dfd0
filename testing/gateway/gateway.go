// Package gateway runs an in-process imitation of a Qlik Sense proxy/repository gateway
// for tests. It enforces the xrf handshake the real gateways apply: the X-Qlik-Xrfkey
// header must be present and equal to the xrfkey query parameter.
package gateway

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	headerXrfKey   = "X-Qlik-Xrfkey"
	headerQlikUser = "X-Qlik-User"
	queryXrfKey    = "xrfkey"
	xrfKeyLength   = 16

	// PathTicket answers ticket requests with a generated ticket
	PathTicket = "/qps/ticket"
	// PathAbout answers with a small JSON document
	PathAbout = "/qrs/about"
)

// Request is a request that passed the xrf check
type Request struct {
	Method   string
	Path     string
	RawQuery string
	XrfKey   string
	QlikUser string
	Cookie   string
	Header   http.Header
	Body     []byte
	// ClientCN is the common name of the client certificate, empty over plain http
	ClientCN string
}

// Gateway is a running fake gateway
type Gateway struct {
	echo   *echo.Echo
	server *httptest.Server

	mu       sync.Mutex
	requests []Request
	rejected int
}

// New starts a plain http gateway.
func New() *Gateway {
	g := newGateway()
	g.server = httptest.NewServer(g.echo)
	return g
}

// NewTLS starts an https gateway presenting cert and requiring client certificates
// issued by clientCAs.
func NewTLS(cert tls.Certificate, clientCAs *x509.CertPool) *Gateway {
	g := newGateway()
	g.server = httptest.NewUnstartedServer(g.echo)
	g.server.TLS = &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    clientCAs,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
	g.server.StartTLS()
	return g
}

func newGateway() *Gateway {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	g := &Gateway{echo: e}
	e.Use(g.xrfGuard)
	e.POST(PathTicket, ticketHandler)
	e.GET(PathAbout, JSON(http.StatusOK, map[string]any{"buildVersion": "14.0.0", "requireStrictTLS": true}))
	return g
}

// URL returns the base address, e.g. https://127.0.0.1:41234
func (g *Gateway) URL() string { return g.server.URL }

// Close stops the gateway and waits for running handlers.
func (g *Gateway) Close() { g.server.Close() }

// Handle registers h for method and path, replacing any existing route.
func (g *Gateway) Handle(method, path string, h echo.HandlerFunc) {
	g.echo.Add(method, path, h)
}

// Requests returns the accepted requests in arrival order
func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// Rejected returns how many requests failed the xrf check
func (g *Gateway) Rejected() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rejected
}

func (g *Gateway) xrfGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		key := r.Header.Get(headerXrfKey)
		if len(key) != xrfKeyLength || key != c.QueryParam(queryXrfKey) {
			g.mu.Lock()
			g.rejected++
			g.mu.Unlock()
			return c.String(http.StatusForbidden, "XrfKey header and query parameter do not match")
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		rec := Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			XrfKey:   key,
			QlikUser: r.Header.Get(headerQlikUser),
			Cookie:   r.Header.Get("Cookie"),
			Header:   r.Header.Clone(),
			Body:     body,
		}
		if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
			rec.ClientCN = r.TLS.PeerCertificates[0].Subject.CommonName
		}

		g.mu.Lock()
		g.requests = append(g.requests, rec)
		g.mu.Unlock()
		return next(c)
	}
}

// JSON answers with status and v encoded as JSON.
func JSON(status int, v any) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(status, v)
	}
}

// Text answers with status and a text/plain body.
func Text(status int, body string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(status, body)
	}
}

// Raw answers with status, an explicit content type and body.
func Raw(status int, contentType string, body []byte) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Blob(status, contentType, body)
	}
}

// Stall sends nothing until release is closed or the client goes away.
func Stall(release <-chan struct{}) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case <-release:
		case <-c.Request().Context().Done():
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Trickle writes the body one byte at a time with interval between bytes. Each write
// is flushed, so the connection never stays idle for longer than interval.
func Trickle(status int, body string, interval time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := c.Response()
		res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
		res.WriteHeader(status)
		res.Flush()
		for i := 0; i < len(body); i++ {
			select {
			case <-time.After(interval):
			case <-c.Request().Context().Done():
				return nil
			}
			if _, err := res.Write([]byte{body[i]}); err != nil {
				return nil
			}
			res.Flush()
		}
		return nil
	}
}

// Sequence answers the n-th call with handlers[n]; the last handler repeats.
func Sequence(handlers ...echo.HandlerFunc) echo.HandlerFunc {
	var (
		mu    sync.Mutex
		calls int
	)
	return func(c echo.Context) error {
		mu.Lock()
		i := calls
		calls++
		mu.Unlock()
		if i >= len(handlers) {
			i = len(handlers) - 1
		}
		return handlers[i](c)
	}
}

type ticketRequest struct {
	UserDirectory string              `json:"UserDirectory"`
	UserID        string              `json:"UserId"`
	Attributes    []map[string]string `json:"Attributes"`
	TargetID      string              `json:"TargetId"`
}

type ticketResponse struct {
	UserDirectory string              `json:"UserDirectory"`
	UserID        string              `json:"UserId"`
	Attributes    []map[string]string `json:"Attributes"`
	Ticket        string              `json:"Ticket"`
	TargetURI     string              `json:"TargetUri"`
}

func ticketHandler(c echo.Context) error {
	var req ticketRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid ticket request")
	}
	if req.UserDirectory == "" || req.UserID == "" {
		return c.String(http.StatusBadRequest, "UserDirectory and UserId are required")
	}
	return c.JSON(http.StatusCreated, ticketResponse{
		UserDirectory: req.UserDirectory,
		UserID:        req.UserID,
		Attributes:    req.Attributes,
		Ticket:        "TkT-" + req.UserDirectory + "-" + req.UserID,
		TargetURI:     "https://qlik.example.com/hub",
	})
}
