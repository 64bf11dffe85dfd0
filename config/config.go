// Package config loads the client configuration from defaults, YAML and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables read by Load
const EnvPrefix = "QLIK_"

type loadOptions struct {
	files   []string
	raw     [][]byte
	environ func() []string
}

// LoadOption customises Load
type LoadOption func(*loadOptions)

// WithFile layers a YAML file over the defaults. A missing file is an error.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) { o.files = append(o.files, path) }
}

// WithYAML layers an in-memory YAML document over the defaults and files.
func WithYAML(data []byte) LoadOption {
	return func(o *loadOptions) { o.raw = append(o.raw, data) }
}

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(environ func() []string) LoadOption {
	return func(o *loadOptions) { o.environ = environ }
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables prefixed with QLIK_ (highest priority)
// 2. Raw YAML documents
// 3. YAML configuration files
// 4. Default values (lowest priority)
func Load(opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, path := range o.files {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	for _, data := range o.raw {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   o.environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts QLIK_CLIENT_IDLETIMEOUT to client.idletimeout
func envKey(k, v string) (string, any) {
	k = strings.TrimPrefix(k, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(k), "_", "."), v
}

func defaults() map[string]any {
	return map[string]any{
		"client.method":                 "POST",
		"client.idletimeout":            "10s",
		"client.keepalive":              false,
		"client.retry.max":              0,
		"client.retry.mode":             RetryNone,
		"client.retry.initial":          "100ms",
		"client.retry.maxinterval":      "2s",
		"client.tls.insecureskipverify": false,

		"log.level":      "info",
		"log.pretty":     false,
		"log.payloads":   false,
		"log.maxpayload": 1024,
	}
}
