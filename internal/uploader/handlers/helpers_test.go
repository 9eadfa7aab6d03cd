package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gartstein/fieldfiles/internal/uploader/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestSessions(t *testing.T) *auth.Sessions {
	t.Helper()
	sessions, err := auth.NewSessions("test-secret", 24*time.Hour, "session-token", "")
	require.NoError(t, err)
	return sessions
}

func newTestServer(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	s := NewServer(0, logger)
	s.RegisterHandler(NewHandler(deps, logger))
	return s.Handler()
}

func sessionCookie(t *testing.T, sessions *auth.Sessions, token string) *http.Cookie {
	t.Helper()
	value, _, err := sessions.Issue(&auth.Authorization{AccessToken: token, AccountEmail: "jane@example.com"})
	require.NoError(t, err)
	return sessions.Cookie(value)
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type formFile struct {
	field   string
	name    string
	content string
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		field := f.field
		if field == "" {
			field = "files"
		}
		part, err := w.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}
