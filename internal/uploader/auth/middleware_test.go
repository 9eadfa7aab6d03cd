package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newTestSessions(t)
	value, _, err := s.Issue(testAuthorization)
	require.NoError(t, err)

	router := gin.New()
	router.POST("/protected", RequireSession(s, zaptest.NewLogger(t)), func(c *gin.Context) {
		token, ok := TokenFromContext(c)
		assert.True(t, ok)
		c.String(http.StatusOK, token)
	})

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("valid cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.AddCookie(s.Cookie(value))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "sl.abc", w.Body.String())
	})
}
