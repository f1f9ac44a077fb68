package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/idscan/pkg/httputil"
)

// NewHTTPRequest builds a request with body encoded as JSON. A nil body sends nothing.
func NewHTTPRequest(method, path string, body interface{}) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(MustJSON(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewMultipartRequest builds a multipart upload with a single file part.
// An empty field name produces a form without any file.
func NewMultipartRequest(t *testing.T, path, field, fileName, contentType string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	require.NoError(t, w.WriteField("note", "test upload"))
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// WithRequestID adds a request ID header
func WithRequestID(req *http.Request, requestID string) *http.Request {
	req.Header.Set("X-Request-ID", requestID)
	return req
}

// ExecuteRequest serves req on handler and returns the recorder
func ExecuteRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// Envelope mirrors httputil.Response with the payload left raw
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
		Stack   string            `json:"stack"`
	} `json:"error"`
	Meta *httputil.Meta `json:"meta"`
}

// DecodeEnvelope parses the response envelope or fails t
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var e Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e), "failed to parse response body: %s", rr.Body.String())
	return e
}

// DecodeData parses the envelope's data field into target
func DecodeData(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	e := DecodeEnvelope(t, rr)
	require.True(t, e.Success, "expected a success envelope: %s", rr.Body.String())
	require.NoError(t, json.Unmarshal(e.Data, target))
}

// AssertStatus reports the body on mismatch
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code. Body: %s", rr.Body.String())
}

// AssertErrorCode checks a failure envelope carries code
func AssertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, code string) {
	t.Helper()
	e := DecodeEnvelope(t, rr)
	assert.False(t, e.Success)
	require.NotNil(t, e.Error, "response has no error body: %s", rr.Body.String())
	assert.Equal(t, code, e.Error.Code)
}

// DefaultTestContext is cancelled after 30 seconds or when t finishes
func DefaultTestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SkipIfShort skips integration tests under -short
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// MustJSON marshals v or panics
func MustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
