package config

import (
	"net/http"
	"os"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/gaborage/qlik-request/httpclient"
	"github.com/gaborage/qlik-request/logger"
)

// Options converts the client section into request options, reading certificate files.
func (c *ClientConfig) Options() (*httpclient.Options, error) {
	cert, err := c.TLS.certificate()
	if err != nil {
		return nil, err
	}

	opts := &httpclient.Options{
		URI:                c.URI,
		Method:             strings.ToUpper(c.Method),
		Session:            c.Session,
		Certificate:        cert,
		InsecureSkipVerify: c.TLS.InsecureSkipVerify,
		IdleTimeout:        c.IdleTimeout,
		KeepAlive:          c.KeepAlive,
		Retry:              c.Retry.Policy(),
	}
	if len(c.Headers) > 0 {
		opts.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			opts.Headers[k] = v
		}
	}
	if c.Identity.UserDirectory != "" || c.Identity.UserID != "" {
		opts.Identity = &httpclient.Identity{
			UserDirectory: c.Identity.UserDirectory,
			UserID:        c.Identity.UserID,
		}
	}
	return opts, nil
}

// TicketOptions is Options aimed at the ticket endpoint with POST.
func (c *ClientConfig) TicketOptions() (*httpclient.Options, error) {
	if c.TicketURI == "" {
		return nil, NewMissingFieldError("client.ticketuri", EnvVar("client.ticketuri"), "client.ticketuri")
	}
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	opts.URI = c.TicketURI
	opts.Method = http.MethodPost
	return opts, nil
}

// Policy maps the retry section onto an httpclient retry policy.
func (r RetryConfig) Policy() httpclient.RetryPolicy {
	switch r.Mode {
	case RetryLegacy:
		return httpclient.LegacyRetry(r.Max)
	case RetryTransient:
		p := httpclient.TransientRetry(r.Max)
		initial, maxInterval := r.Initial, r.MaxInterval
		if initial > 0 || maxInterval > 0 {
			if initial <= 0 {
				initial = httpclient.DefaultRetryInitialInterval
			}
			if maxInterval <= 0 {
				maxInterval = httpclient.DefaultRetryMaxInterval
			}
			p.Backoff = func() backoff.BackOff {
				return backoff.NewExponentialBackOff(
					backoff.WithInitialInterval(initial),
					backoff.WithMaxInterval(maxInterval),
					backoff.WithMaxElapsedTime(0),
				)
			}
		}
		return p
	default:
		return httpclient.RetryPolicy{}
	}
}

func (t TLSConfig) certificate() (httpclient.CertificateSource, error) {
	if t.Archive != "" {
		data, err := readFile("client.tls.archive", t.Archive)
		if err != nil {
			return nil, err
		}
		return &httpclient.ArchiveCertificate{Data: data, Passphrase: t.Passphrase}, nil
	}
	if t.Cert == "" && t.Key == "" && t.CA == "" {
		return nil, nil
	}

	pem := &httpclient.PEMCertificate{}
	var err error
	if pem.Cert, err = readFile("client.tls.cert", t.Cert); err != nil {
		return nil, err
	}
	if pem.Key, err = readFile("client.tls.key", t.Key); err != nil {
		return nil, err
	}
	if pem.CA, err = readFile("client.tls.ca", t.CA); err != nil {
		return nil, err
	}
	return pem, nil
}

func readFile(field, path string) ([]byte, error) {
	if path == "" {
		return nil, NewMissingFieldError(field, EnvVar(field), field)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Category: "invalid",
			Field:    field,
			Message:  "cannot read file",
			Details:  []string{err.Error()},
		}
	}
	return data, nil
}

// NewLogger builds the logger described by the log section.
func (l LogConfig) NewLogger() *logger.ZeroLogger {
	return logger.New(l.Level, l.Pretty)
}

// ClientConfig returns the httpclient configuration for the logger and log section.
func (l LogConfig) ClientConfig(log logger.Logger) httpclient.Config {
	return httpclient.Config{
		Logger:             log,
		LogPayloads:        l.Payloads,
		MaxPayloadLogBytes: l.MaxPayload,
	}
}
