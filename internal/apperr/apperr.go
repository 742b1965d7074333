// Package apperr defines the error kinds surfaced at the HTTP boundary and
// the single table that maps them to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnsupportedFile
	KindTooLarge
	KindPageNotFound
	KindTableNotFound
	KindExtraction
	KindRender
)

var statusByKind = map[Kind]int{
	KindInternal:        http.StatusInternalServerError,
	KindValidation:      http.StatusBadRequest,
	KindUnsupportedFile: http.StatusBadRequest,
	KindTooLarge:        http.StatusRequestEntityTooLarge,
	KindPageNotFound:    http.StatusNotFound,
	KindTableNotFound:   http.StatusNotFound,
	KindExtraction:      http.StatusUnprocessableEntity,
	KindRender:          http.StatusUnprocessableEntity,
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnsupportedFile:
		return "unsupported_file"
	case KindTooLarge:
		return "too_large"
	case KindPageNotFound:
		return "page_not_found"
	case KindTableNotFound:
		return "table_not_found"
	case KindExtraction:
		return "extraction"
	case KindRender:
		return "render"
	default:
		return "internal"
	}
}

// Error carries a kind, a caller facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Detail is the message shown to the caller. Internal errors never leak
// their cause.
func Detail(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "Internal server error"
	}
	return e.Error()
}
