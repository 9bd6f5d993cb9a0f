package checkout

import (
	"fmt"
	"strings"
)

// ErrorCode identifies a client-detectable validation failure
type ErrorCode string

const (
	CodeEmptyProducts      ErrorCode = "EmptyProducts"
	CodeInvalidProductName ErrorCode = "InvalidProductName"
	CodeInvalidPrice       ErrorCode = "InvalidPrice"
	CodeInvalidURL         ErrorCode = "InvalidUrl"
	CodeEmptySlug          ErrorCode = "EmptySlug"
	CodeMissingField       ErrorCode = "MissingField"
	CodeInvalidEmail       ErrorCode = "InvalidEmail"
	CodeNoProductSelected  ErrorCode = "NoProductSelected"
	CodeUnknownProduct     ErrorCode = "UnknownProduct"
	CodeDuplicateID        ErrorCode = "DuplicateId"
)

// ValidationError is raised before anything is persisted.
// Index is the position of the offending product, -1 when not product related.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Field   string    `json:"field,omitempty"`
	Index   int       `json:"index"`
	ID      string    `json:"id,omitempty"`
	Message string    `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches validation errors by code so errors.Is(err, &ValidationError{Code: ...}) works
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, field string, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Index:   -1,
		Message: fmt.Sprintf(format, args...),
	}
}

func productError(code ErrorCode, index int, id, field, format string, args ...interface{}) *ValidationError {
	err := newError(code, field, format, args...)
	err.Index = index
	err.ID = id
	return err
}

// ValidationErrors is a list of failures reported together
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// First returns the first failure or nil
func (errs ValidationErrors) First() *ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// HasField reports whether any failure is about the given field
func (errs ValidationErrors) HasField(field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// orNil keeps a nil slice from turning into a non-nil error interface
func (errs ValidationErrors) orNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
