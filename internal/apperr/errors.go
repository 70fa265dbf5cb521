// Package apperr defines the error taxonomy shared by the service layers and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// FieldErrors maps a field path (for example "personalInfo.fullName") to the failed rules.
type FieldErrors map[string][]string

// ValidationError is returned when input fails a schema check. Nothing has been written yet.
type ValidationError struct {
	Message string
	Fields  FieldErrors
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ",")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a ValidationError carrying only a message.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a lookup by identifier finds nothing.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TransportError wraps a failure of the outbound mail transport.
// Code is the provider or protocol code, "UNKNOWN" when none is available.
type TransportError struct {
	Code      string
	Temporary bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail transport (%s): %v", e.Code, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DuplicateKeyError is returned when a unique constraint rejects a write.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return "Duplicate value for field: " + e.Field
}

// pgUniqueViolation is the postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// constraintFields names the column behind each unique constraint we declare.
var constraintFields = map[string]string{
	"email_deliveries_provider_message_id_key": "providerMessageId",
}

// Storage wraps err as a StorageError, converting unique violations to DuplicateKeyError.
// Returns nil for a nil err.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ColumnName
		}
		if field == "" {
			field = pgErr.ConstraintName
		}
		return &DuplicateKeyError{Field: field}
	}
	return &StorageError{Op: op, Err: err}
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		duplicateErr  *DuplicateKeyError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &duplicateErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Details returns the structured detail payload for err, if any.
func Details(err error) any {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		if len(validationErr.Fields) > 0 {
			return validationErr.Fields
		}
		return validationErr.Message
	}
	var duplicateErr *DuplicateKeyError
	if errors.As(err, &duplicateErr) {
		return duplicateErr.Error()
	}
	if err != nil {
		return err.Error()
	}
	return nil
}
