package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

// Serve sends a request through the engine. A non-nil body is sent as JSON
// and a non-empty token as a bearer credential.
func Serve(t *testing.T, engine http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// DecodeResponse parses body into the response envelope
func DecodeResponse(t *testing.T, body []byte) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(body, &resp), "not an envelope: %s", body)
	return resp
}

// DataAs decodes the data field of a successful envelope into T
func DataAs[T any](t *testing.T, body []byte) T {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope), "not an envelope: %s", body)
	require.True(t, envelope.Success, "expected success: %s", body)

	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

// ErrorCode returns the error code of a failed envelope
func ErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	resp := DecodeResponse(t, body)
	require.False(t, resp.Success, "expected failure: %s", body)
	require.NotNil(t, resp.Error, "missing error object: %s", body)
	return resp.Error.Code
}

// AssertErrorCode fails t unless body is an error envelope carrying code
func AssertErrorCode(t *testing.T, body []byte, code string) {
	t.Helper()
	require.Equal(t, code, ErrorCode(t, body))
}
