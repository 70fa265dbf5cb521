// Package validation holds the request shapes accepted at the HTTP boundary
// and checks them before any domain record is built.
package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/blockedby/resume-refresh/internal/apperr"
)

// Validator checks struct tags and reports failures by JSON field path.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that names fields by their json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates s. Failures are returned as *apperr.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &apperr.ValidationError{Message: err.Error()}
	}

	fields := apperr.FieldErrors{}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		fields[field] = append(fields[field], fe.Tag())
	}
	return &apperr.ValidationError{Fields: fields}
}

// fieldPath drops the root struct name: "SendEmailInput.to" becomes "to".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

var std = New()

// Validate checks s with the shared Validator.
func Validate(s any) error {
	return std.Struct(s)
}

// DecodeJSON decodes a JSON body into dst. Malformed bodies become validation errors.
func DecodeJSON(r io.Reader, dst any) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.NewValidation("request body is required")
		}
		return apperr.NewValidation("invalid JSON payload: %v", err)
	}
	return nil
}
