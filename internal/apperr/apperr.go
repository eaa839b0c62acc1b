// Package apperr defines the error kinds surfaced by every operation.
//
// Each kind is a *goerrors.Error carrying a category and a stable text code,
// so callers can branch with KindOf and transports can render a structured
// body without string matching.
package apperr

import (
	"net/http"
	"sort"

	goerrors "github.com/goliatone/go-errors"
)

// Kind tags an error for callers.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindResourceLimit Kind = "ResourceLimitError"
	KindPathSecurity  Kind = "PathSecurityError"
	KindFileSystem    Kind = "FileSystemError"
	KindRender        Kind = "RenderError"
)

var (
	CategoryResourceLimit = goerrors.Category("resource_limit")
	CategoryFileSystem    = goerrors.CategoryInternal.Extend("filesystem")
)

// Validation reports malformed, missing or out-of-range input.
func Validation(code, message string, fields ...goerrors.FieldError) *goerrors.Error {
	return goerrors.NewValidation(message, fields...).WithTextCode(code)
}

// FromValidation converts ozzo-validation errors into a ValidationError with
// field errors sorted by field name.
func FromValidation(err error, code, message string) *goerrors.Error {
	if err == nil {
		return nil
	}
	e := goerrors.FromOzzoValidation(err, message).WithTextCode(code)
	sort.Slice(e.ValidationErrors, func(i, j int) bool {
		return e.ValidationErrors[i].Field < e.ValidationErrors[j].Field
	})
	return e
}

// ResourceLimit reports a size, node or depth ceiling being exceeded.
func ResourceLimit(code, message string) *goerrors.Error {
	return goerrors.New(message, CategoryResourceLimit).WithTextCode(code)
}

// PathSecurity reports a path resolving outside the permitted roots.
func PathSecurity(code, message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuthz).WithTextCode(code)
}

// FileSystem wraps a read/write/stat failure on the underlying storage.
func FileSystem(err error, code, message string) *goerrors.Error {
	if err == nil {
		return goerrors.New(message, CategoryFileSystem).WithTextCode(code)
	}
	return goerrors.Wrap(err, CategoryFileSystem, message).WithTextCode(code)
}

// Render wraps a failure inside the render delegate, or any fault an
// operation did not classify itself.
func Render(err error, code, message string) *goerrors.Error {
	if err == nil {
		return goerrors.New(message, goerrors.CategoryExternal).WithTextCode(code)
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).WithTextCode(code)
}

// KindOf classifies err. Errors that carry no known category are reported
// as RenderError.
func KindOf(err error) Kind {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return KindRender
	}
	switch e.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return KindValidation
	case CategoryResourceLimit:
		return KindResourceLimit
	case goerrors.CategoryAuthz:
		return KindPathSecurity
	case CategoryFileSystem:
		return KindFileSystem
	default:
		return KindRender
	}
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Code returns the text code of err, or "" when it has none.
func Code(err error) string {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode
	}
	return ""
}

// Classify guarantees err is one of the known kinds. Errors that are already
// classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return Render(err, "OPERATION_FAILED", "operation failed")
}

// HTTPStatus maps a kind to a response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindResourceLimit:
		return http.StatusRequestEntityTooLarge
	case KindPathSecurity:
		return http.StatusForbidden
	case KindFileSystem:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// Body is the JSON shape of an error returned to callers.
type Body struct {
	Kind             Kind                      `json:"kind"`
	Code             string                    `json:"code,omitempty"`
	Message          string                    `json:"message"`
	ValidationErrors goerrors.ValidationErrors `json:"validation_errors,omitempty"`
}

// ToBody renders err for a caller.
func ToBody(err error) Body {
	b := Body{Kind: KindOf(err), Message: err.Error()}
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		b.Code = e.TextCode
		b.Message = e.Message
		b.ValidationErrors = e.ValidationErrors
	}
	return b
}
