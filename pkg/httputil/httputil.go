package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/medflow/idscan/pkg/errors"
)

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody represents an error in the response
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

// Meta contains pagination metadata
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// NewMeta builds pagination metadata; HasMore is true iff page*limit < total
func NewMeta(page, limit int, total int64) *Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int(total) / limit
		if int(total)%limit > 0 {
			totalPages++
		}
	}

	return &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(page)*int64(limit) < total,
	}
}

// exposeStack controls whether 500 responses carry a stack trace.
// Only enable it in development.
var exposeStack bool

// ExposeStackTraces toggles stack traces in 500 responses
func ExposeStackTraces(enabled bool) {
	exposeStack = enabled
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

// JSONWithMeta sends a JSON response with metadata
func JSONWithMeta(w http.ResponseWriter, statusCode int, data interface{}, meta *Meta) {
	write(w, statusCode, Response{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
		Meta:    meta,
	})
}

// Created sends a 201 Created response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error response localized from the request's Accept-Language.
// Errors that are not AppErrors become a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.Internal(err)
	}

	body := &ErrorBody{
		Code:    appErr.Code,
		Message: appErr.Localize(r.Context()),
		Details: appErr.Details,
	}
	if exposeStack && appErr.StatusCode >= http.StatusInternalServerError {
		body.Stack = errors.StackTrace(appErr)
	}

	write(w, appErr.StatusCode, Response{Success: false, Error: body})
}

// StatusOf returns the HTTP status an error renders as
func StatusOf(err error) int {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// DecodeJSON decodes the request body into the provided struct
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewWithKey("BAD_REQUEST", "errors.invalid_json", http.StatusBadRequest)
	}
	return nil
}

func write(w http.ResponseWriter, statusCode int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
