package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("httpurl", validateHTTPURL); err != nil {
		panic(err)
	}
	return v
}

// validateHTTPURL accepts absolute http and https URLs with a host
func validateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// Validate checks cfg and returns every violation as a *ConfigError, joined.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError(fe))
	}
	return errors.Join(out...)
}

func fieldError(fe validator.FieldError) *ConfigError {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(key, EnvVar(key), key)
	case "required_with":
		return NewMissingFieldError(key, EnvVar(key), key).withDetail("the pem key, cert and ca must be configured together")
	case "excluded_with":
		return NewInvalidFieldError(key, "cannot be combined with "+strings.ToLower(fe.Param()), nil)
	case "oneof":
		return NewInvalidFieldError(key, fmt.Sprintf("invalid value %q", fe.Value()), strings.Fields(fe.Param()))
	case "httpurl":
		return NewInvalidFieldError(key, fmt.Sprintf("invalid url %q", fe.Value()), []string{"http://host[:port]/path", "https://host[:port]/path"})
	case "gte", "lte":
		return NewInvalidFieldError(key, fmt.Sprintf("value %v out of range (%s %s)", fe.Value(), fe.Tag(), fe.Param()), nil)
	default:
		return NewInvalidFieldError(key, "failed "+fe.Tag()+" validation", nil)
	}
}

func (e *ConfigError) withDetail(detail string) *ConfigError {
	e.Details = append(e.Details, detail)
	return e
}
