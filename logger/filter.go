package logger

import (
	"net/url"
	"strings"
)

const (
	// DefaultMaskValue replaces sensitive values in log output
	DefaultMaskValue = "***"
	// DefaultMaxDepth bounds recursion into nested maps and slices
	DefaultMaxDepth = 8
)

// FilterConfig defines which field names are treated as sensitive
type FilterConfig struct {
	// SensitiveFields are case-insensitive substrings; a key containing any of them is masked
	SensitiveFields []string
	// AllowedFields are exact (case-insensitive) keys never masked, even when they match SensitiveFields
	AllowedFields []string
	// MaskValue replaces masked data (default: "***")
	MaskValue string
}

// DefaultFilterConfig masks credentials, certificate material and session cookies.
// The xrf key is a public per-request nonce and is allowed through.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "passphrase",
			"secret", "key", "pfx",
			"token", "cookie", "session",
			"auth", "authorization",
			"credential", "credentials",
		},
		AllowedFields: []string{"xrfkey", "x-qlik-xrfkey"},
		MaskValue:     DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach the log writer
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter; a nil config selects DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// IsSensitive reports whether values logged under key must be masked.
func (f *SensitiveDataFilter) IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, allowed := range f.config.AllowedFields {
		if lower == strings.ToLower(allowed) {
			return false
		}
	}
	for _, sensitive := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(sensitive)) {
			return true
		}
	}
	return false
}

// FilterString masks value when key is sensitive. URLs keep their structure with only the
// password replaced.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if value == "" || !f.IsSensitive(key) {
		return value
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return f.maskURL(value)
	}
	return f.config.MaskValue
}

// FilterValue masks value when key is sensitive and walks nested maps and slices.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filterValue(key, value, DefaultMaxDepth)
}

// FilterFields filters every entry of fields and returns a new map.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

func (f *SensitiveDataFilter) filterValue(key string, value any, depth int) any {
	if value == nil {
		return nil
	}
	if f.IsSensitive(key) {
		return f.config.MaskValue
	}
	if depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = f.filterValue(k, val, depth-1)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = f.FilterString(k, val)
		}
		return out
	case map[string][]string:
		out := make(map[string][]string, len(v))
		for k, vals := range v {
			if f.IsSensitive(k) {
				out[k] = []string{f.config.MaskValue}
				continue
			}
			out[k] = vals
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = f.filterValue(key, val, depth-1)
		}
		return out
	default:
		return value
	}
}

// MaskURL replaces the password of a URL's userinfo with the mask value.
// URLs without a password are returned unchanged.
func (f *SensitiveDataFilter) MaskURL(raw string) string {
	return f.maskURL(raw)
}

// RedactURL is MaskURL with the default filter configuration
func RedactURL(raw string) string {
	return defaultFilter.maskURL(raw)
}

var defaultFilter = NewSensitiveDataFilter(nil)

func (f *SensitiveDataFilter) maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return f.config.MaskValue
	}
	if parsed.User == nil {
		return raw
	}
	if _, hasPassword := parsed.User.Password(); !hasPassword {
		return raw
	}
	return f.buildMaskedURL(parsed)
}

// buildMaskedURL writes the URL by hand so the mask is not percent-escaped
func (f *SensitiveDataFilter) buildMaskedURL(parsed *url.URL) string {
	var b strings.Builder
	b.WriteString(parsed.Scheme)
	b.WriteString("://")
	b.WriteString(parsed.User.Username())
	b.WriteByte(':')
	b.WriteString(f.config.MaskValue)
	b.WriteByte('@')
	b.WriteString(parsed.Host)
	b.WriteString(parsed.EscapedPath())
	if parsed.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(parsed.RawQuery)
	}
	if parsed.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(parsed.EscapedFragment())
	}
	return b.String()
}
