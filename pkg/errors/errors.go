package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"github.com/medflow/idscan/pkg/i18n"
)

// Sentinels for errors.Is. Every AppError carries one as its Kind.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrInternal    = errors.New("internal server error")
	ErrValidation  = errors.New("validation error")
	ErrUnavailable = errors.New("upstream service unavailable")
)

// AppError is an error with an HTTP status, a stable code and a localizable message
type AppError struct {
	// Kind is the sentinel this error matches with errors.Is
	Kind error `json:"-"`
	// Cause is the underlying error, wrapped with the stack where it was attached
	Cause      error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"`
	Params     map[string]string `json:"-"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both Kind and Cause to errors.Is and errors.As
func (e *AppError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Localize renders the message in the locale stored in ctx
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// WithDetails sets per-field details
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithCause attaches err, recording a stack trace at the call site
func (e *AppError) WithCause(err error) *AppError {
	if err != nil {
		e.Cause = pkgerrors.WithStack(err)
	}
	return e
}

func newKind(kind error, code string, status int, message string) *AppError {
	return &AppError{Kind: kind, Code: code, StatusCode: status, Message: message}
}

func keyed(e *AppError, key string, params map[string]string) *AppError {
	e.MessageKey = key
	e.Params = params
	e.Message = i18n.T(key, params)
	return e
}

// New creates an AppError without a sentinel
func New(code string, message string, statusCode int) *AppError {
	return newKind(nil, code, statusCode, message)
}

// NewWithKey creates an AppError whose message comes from the i18n catalogue.
// Message holds the English text, Localize picks the request locale.
func NewWithKey(code string, messageKey string, statusCode int, params ...map[string]string) *AppError {
	var p map[string]string
	if len(params) > 0 {
		p = params[0]
	}
	return keyed(New(code, "", statusCode), messageKey, p)
}

// Wrap is New plus WithCause
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return New(code, message, statusCode).WithCause(err)
}

// NotFound names the missing resource via its "resources." catalogue key
func NotFound(resourceKey string) *AppError {
	name := i18n.T("resources." + resourceKey)
	return keyed(newKind(ErrNotFound, "NOT_FOUND", http.StatusNotFound, ""),
		"errors.not_found", map[string]string{"resource": name})
}

func BadRequest(message string) *AppError {
	return newKind(ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, message)
}

func Conflict(message string) *AppError {
	return newKind(ErrConflict, "CONFLICT", http.StatusConflict, message)
}

// Internal hides err behind a generic 500 message; err and its stack stay on Cause
func Internal(err error) *AppError {
	return keyed(newKind(ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, ""),
		"errors.internal", nil).WithCause(err)
}

func Validation(details map[string]string) *AppError {
	e := keyed(newKind(ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, ""), "errors.validation_failed", nil)
	return e.WithDetails(details)
}

// Unavailable is a 503 for a failing upstream such as the OCR provider
func Unavailable(code string, messageKey string) *AppError {
	return keyed(newKind(ErrUnavailable, code, http.StatusServiceUnavailable, ""), messageKey, nil)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// StackTrace returns the first stack recorded in err's tree, or ""
func StackTrace(err error) string {
	switch e := err.(type) {
	case nil:
		return ""
	case stackTracer:
		return fmt.Sprintf("%+v", e.StackTrace())
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if st := StackTrace(inner); st != "" {
				return st
			}
		}
		return ""
	case interface{ Unwrap() error }:
		return StackTrace(e.Unwrap())
	default:
		return ""
	}
}
