package httpclient

import (
	"net/http"
	"time"
)

const (
	// HeaderXrfKey carries the per-request xrf key
	HeaderXrfKey = "X-Qlik-Xrfkey"
	// HeaderQlikUser carries the directory and user the request acts as
	HeaderQlikUser = "X-Qlik-User"
	// QueryXrfKey is the query parameter repeating the xrf key
	QueryXrfKey = "xrfkey"

	// DefaultMethod is used when Options.Method is empty
	DefaultMethod = http.MethodPost
	// DefaultIdleTimeout is used when Options.IdleTimeout is zero
	DefaultIdleTimeout = 10 * time.Second
	// DefaultUserDirectory fills a missing Identity.UserDirectory
	DefaultUserDirectory = "."
	// DefaultUserID fills a missing Identity.UserID
	DefaultUserID = "qlikservice"

	contentTypeJSON = "application/json"
)

// Options describes a single call to a gateway endpoint.
// Options are never modified by the client and may be reused across calls.
type Options struct {
	// URI is the absolute endpoint address, e.g. https://qlik:4243/qps/ticket
	URI string
	// Method defaults to POST
	Method string
	// Headers are sent in addition to the protocol headers, which take precedence
	Headers map[string]string
	// Identity produces the X-Qlik-User header when set
	Identity *Identity
	// Session is sent verbatim as the Cookie header when non-empty
	Session string
	// Certificate is the client certificate material; required for https, forbidden for http
	Certificate CertificateSource
	// InsecureSkipVerify disables server certificate verification. Off unless set explicitly.
	InsecureSkipVerify bool
	// IdleTimeout aborts the call when the connection shows no activity for this long
	IdleTimeout time.Duration
	// KeepAlive allows connections to be reused between calls
	KeepAlive bool
	// Retry controls automatic re-issuing of failed calls; the zero value never retries
	Retry RetryPolicy
}

// Identity names the user directory and user a request is made on behalf of.
// Empty fields are replaced by DefaultUserDirectory and DefaultUserID.
type Identity struct {
	UserDirectory string
	UserID        string
}

// header renders the X-Qlik-User header value
func (i *Identity) header() string {
	dir := i.UserDirectory
	if dir == "" {
		dir = DefaultUserDirectory
	}
	id := i.UserID
	if id == "" {
		id = DefaultUserID
	}
	return "UserDirectory= " + dir + "; UserId= " + id
}

// CertificateSource is client certificate material in one of the supported formats:
// *ArchiveCertificate or *PEMCertificate.
type CertificateSource interface {
	certificateSource()
}

// ArchiveCertificate is a PKCS#12 (pfx) archive holding the client key, certificate
// and optionally the CA chain.
type ArchiveCertificate struct {
	Data       []byte
	Passphrase string
}

func (*ArchiveCertificate) certificateSource() {}

// PEMCertificate is the PEM encoded key, certificate and CA trio exported by the
// Qlik Sense certificate wizard (client_key.pem, client.pem, root.pem).
type PEMCertificate struct {
	Key  []byte
	Cert []byte
	CA   []byte
}

func (*PEMCertificate) certificateSource() {}
