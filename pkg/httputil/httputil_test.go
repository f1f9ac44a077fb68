package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/i18n"
	"github.com/medflow/idscan/pkg/logger"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		totalPages int
		hasMore    bool
	}{
		{"empty", 1, 10, 0, 0, false},
		{"exact page", 1, 10, 10, 1, false},
		{"partial last page", 2, 10, 25, 3, true},
		{"last page", 3, 10, 25, 3, false},
		{"beyond last page", 5, 10, 25, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewMeta(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.totalPages, meta.TotalPages)
			assert.Equal(t, tt.hasMore, meta.HasMore)
		})
	}
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, NewMeta(1, 10, 1))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, `"totalPages":1`)
	assert.Contains(t, body, `"hasMore":false`)
}

func TestError_LocalizesAppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(i18n.WithLocale(req.Context(), i18n.LocaleGerman))
	rec := httptest.NewRecorder()

	Error(rec, req, errors.NotFound("record"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestError_PlainErrorBecomesInternal(t *testing.T) {
	ExposeStackTraces(false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	Error(rec, req, stderrors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "disk on fire")
	assert.Empty(t, resp.Error.Stack)
}

func TestError_StackOnlyWhenExposed(t *testing.T) {
	ExposeStackTraces(true)
	t.Cleanup(func() { ExposeStackTraces(false) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	Error(rec, req, errors.Internal(stderrors.New("boom")))
	assert.NotEmpty(t, decode(t, rec).Error.Stack)

	rec = httptest.NewRecorder()
	Error(rec, req, errors.BadRequest("nope"))
	assert.Empty(t, decode(t, rec).Error.Stack, "client errors never carry a stack")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusOf(errors.Conflict("dup")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stderrors.New("x")))
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "ok", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := DecodeJSON(req, &v)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		LastName string `json:"lastName" validate:"required,max=5"`
		Initial  string `json:"middleInitial" validate:"omitempty,len=1,alpha"`
	}

	err := Validate(payload{Initial: "ab"})
	require.Error(t, err)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Equal(t, "this field is required", appErr.Details["lastName"])
	assert.Equal(t, "must be exactly 1 characters", appErr.Details["middleInitial"])

	assert.NoError(t, Validate(payload{LastName: "Doe", Initial: "Q"}))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "req-123", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotContains(t, seen, "newline")
}

func TestLogger_LevelByStatus(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter("test", &buf)

	var scoped *logger.Logger
	h := RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = LoggerFrom(r.Context(), nil)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	})))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-ID", "req-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, scoped)
	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "req-9", line["request_id"])
	assert.EqualValues(t, http.StatusNotFound, line["status"])

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/id", nil))
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &line))
	assert.Equal(t, "info", line["level"])
	assert.EqualValues(t, http.StatusOK, line["status"])
}

func TestRecoverer(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter("test", &buf)

	h := Recoverer(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rec).Error.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}
