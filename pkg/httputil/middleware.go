package httputil

import (
	"context"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/medflow/idscan/pkg/logger"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	loggerKey
)

// client supplied ids are kept only when they look like an id
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)

// RequestID reuses a well formed X-Request-ID or generates a UUID, and echoes it back
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// GetRequestID returns the id set by RequestID, or ""
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Logger stores a request scoped logger in the context and writes one access
// line per request. 5xx log at error, 4xx at warn, /health at debug.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.WithRequestID(GetRequestID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerKey, reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := reqLog.Info()
			switch {
			case status >= http.StatusInternalServerError:
				event = reqLog.Error()
			case status >= http.StatusBadRequest:
				event = reqLog.Warn()
			case r.URL.Path == "/health":
				event = reqLog.Debug()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// LoggerFrom returns the request logger installed by Logger, or fallback
func LoggerFrom(ctx context.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := ctx.Value(loggerKey).(*logger.Logger); ok {
		return l
	}
	return fallback
}

// Recoverer turns a panic into a 500 envelope. The stack is logged always and
// returned only when stack traces are exposed.
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := string(debug.Stack())
				LoggerFrom(r.Context(), log).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Str("stack", stack).
					Msg("panic recovered")

				body := &ErrorBody{Code: "INTERNAL_ERROR", Message: "an unexpected error occurred"}
				if exposeStack {
					body.Stack = stack
				}
				write(w, http.StatusInternalServerError, Response{Success: false, Error: body})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
