package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Retry modes accepted by client.retry.mode
const (
	RetryNone      = "none"
	RetryLegacy    = "legacy"
	RetryTransient = "transient"
)

// Config is the root configuration.
// The koanf instance is kept for ad-hoc access through the accessors.
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// ClientConfig describes the default gateway call
type ClientConfig struct {
	URI         string            `koanf:"uri" json:"uri" yaml:"uri" validate:"required,httpurl"`
	Method      string            `koanf:"method" json:"method" yaml:"method" validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS get post put patch delete head options"`
	Headers     map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	Identity    IdentityConfig    `koanf:"identity" json:"identity" yaml:"identity"`
	Session     string            `koanf:"session" json:"-" yaml:"session"`
	TLS         TLSConfig         `koanf:"tls" json:"tls" yaml:"tls"`
	IdleTimeout time.Duration     `koanf:"idletimeout" json:"idletimeout" yaml:"idletimeout" validate:"gte=0"`
	KeepAlive   bool              `koanf:"keepalive" json:"keepalive" yaml:"keepalive"`
	Retry       RetryConfig       `koanf:"retry" json:"retry" yaml:"retry"`
	// TicketURI is the QPS ticket endpoint, e.g. https://qlik:4243/qps/ticket
	TicketURI string `koanf:"ticketuri" json:"ticketuri" yaml:"ticketuri" validate:"omitempty,httpurl"`
}

// IdentityConfig produces the X-Qlik-User header when either field is set
type IdentityConfig struct {
	UserDirectory string `koanf:"userdirectory" json:"userdirectory" yaml:"userdirectory"`
	UserID        string `koanf:"userid" json:"userid" yaml:"userid"`
}

// TLSConfig points at client certificate files: either a pfx archive or the PEM trio.
type TLSConfig struct {
	Archive            string `koanf:"archive" json:"archive" yaml:"archive" validate:"excluded_with=Cert Key CA"`
	Passphrase         string `koanf:"passphrase" json:"-" yaml:"passphrase"`
	Cert               string `koanf:"cert" json:"cert" yaml:"cert" validate:"required_with=Key CA"`
	Key                string `koanf:"key" json:"key" yaml:"key" validate:"required_with=Cert CA"`
	CA                 string `koanf:"ca" json:"ca" yaml:"ca" validate:"required_with=Cert Key"`
	InsecureSkipVerify bool   `koanf:"insecureskipverify" json:"insecureskipverify" yaml:"insecureskipverify"`
}

// RetryConfig selects a retry policy
type RetryConfig struct {
	Max         int           `koanf:"max" json:"max" yaml:"max" validate:"gte=0,lte=20"`
	Mode        string        `koanf:"mode" json:"mode" yaml:"mode" validate:"oneof=none legacy transient"`
	Initial     time.Duration `koanf:"initial" json:"initial" yaml:"initial" validate:"gte=0"`
	MaxInterval time.Duration `koanf:"maxinterval" json:"maxinterval" yaml:"maxinterval" validate:"gte=0"`
}

// LogConfig configures the zerolog backed logger
type LogConfig struct {
	Level      string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty     bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
	Payloads   bool   `koanf:"payloads" json:"payloads" yaml:"payloads"`
	MaxPayload int    `koanf:"maxpayload" json:"maxpayload" yaml:"maxpayload" validate:"gte=0"`
}
