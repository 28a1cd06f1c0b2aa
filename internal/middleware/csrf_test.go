package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newCSRFRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CSRF())
	r.GET("/api/opportunities", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/api/opportunities/1/bookmark", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

// fetchCSRFToken performs a safe request and returns the issued cookie and
// the matching header token.
func fetchCSRFToken(t *testing.T, r *gin.Engine) (*http.Cookie, string) {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	resp := w.Result()
	defer resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CSRFCookieName {
			cookie = c
			break
		}
	}
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)

	token := resp.Header.Get(CSRFHeaderName)
	require.NotEmpty(t, token)
	return cookie, token
}

func TestCSRFIssuesTokenOnSafeMethod(t *testing.T) {
	cookie, token := fetchCSRFToken(t, newCSRFRouter())
	require.Equal(t, cookie.Value, token)
}

func TestCSRFAcceptsValidToken(t *testing.T) {
	r := newCSRFRouter()
	cookie, token := fetchCSRFToken(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/opportunities/1/bookmark", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCSRFFailsWithMissingToken(t *testing.T) {
	r := newCSRFRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/opportunities/1/bookmark", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFFailsWithMismatchedToken(t *testing.T) {
	r := newCSRFRouter()
	cookie, _ := fetchCSRFToken(t, r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/opportunities/1/bookmark", nil)
	req.AddCookie(cookie)
	req.Header.Set(CSRFHeaderName, "not-the-issued-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
