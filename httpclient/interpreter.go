package httpclient

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
)

// ResultKind tells which field of a Result holds the body
type ResultKind int

const (
	// KindStructured means Value holds the decoded JSON document
	KindStructured ResultKind = iota + 1
	// KindText means Text holds the raw body of a non-JSON response
	KindText
	// KindFallback means the body was announced as JSON but could not be decoded
	KindFallback
)

func (k ResultKind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindText:
		return "text"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Fallback describes a response whose body could not be decoded
type Fallback struct {
	URI           string `json:"uri"`
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Body          string `json:"body"`
}

// Result is an interpreted response
type Result struct {
	Kind          ResultKind
	StatusCode    int
	StatusMessage string
	Header        http.Header

	// Value is the decoded document for KindStructured
	Value any
	// Text is the body for KindText
	Text string
	// Fallback is set for KindFallback
	Fallback *Fallback

	raw []byte
}

// Raw returns the undecoded response body
func (r *Result) Raw() []byte { return r.raw }

// Decode unmarshals a structured body into v.
func (r *Result) Decode(v any) error {
	if r.Kind != KindStructured {
		return errors.New("httpclient: result is not structured (" + r.Kind.String() + ")")
	}
	return json.Unmarshal(r.raw, v)
}

// Interpret classifies raw by status code and decodes its body according to Content-Type.
// Statuses 4xx and 5xx return an application error carrying the interpreted result.
// A JSON body that fails to decode yields a KindFallback result, never a decode error.
func Interpret(raw *RawResponse) (*Result, error) {
	res := &Result{
		StatusCode:    raw.StatusCode,
		StatusMessage: raw.Status,
		Header:        raw.Header,
		raw:           raw.Body,
	}

	if isStructured(raw.Header.Get("Content-Type")) {
		var v any
		if err := json.Unmarshal(raw.Body, &v); err == nil {
			res.Kind = KindStructured
			res.Value = v
		} else {
			res.Kind = KindFallback
			res.Fallback = &Fallback{
				URI:           raw.URI,
				StatusCode:    raw.StatusCode,
				StatusMessage: raw.Status,
				Body:          string(raw.Body),
			}
		}
	} else {
		res.Kind = KindText
		res.Text = string(raw.Body)
	}

	if !IsSuccessStatus(raw.StatusCode) {
		return nil, NewApplicationError(res)
	}
	return res, nil
}

// isStructured reports whether the primary media type announces JSON
func isStructured(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	switch {
	case mediaType == "application/json", mediaType == "text/json":
		return true
	case strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"):
		return true
	default:
		return false
	}
}
