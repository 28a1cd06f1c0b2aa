package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/aruzhans/oppora/internal/auth"
	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
)

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	admin := models.User{Username: "admin", Email: "admin@example.com", Password: "x", IsActive: true, IsAdmin: true}
	regular := models.User{Username: "user", Email: "user@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&regular).Error)
	require.NoError(t, db.Model(&admin).Update("is_admin", true).Error)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin", Auth(jwtSvc), RequireAdmin(db), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	call := func(userID string) int {
		token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, call(admin.ID))
	require.Equal(t, http.StatusForbidden, call(regular.ID))
	require.Equal(t, http.StatusUnauthorized, call("ghost"))
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/page", OptionalAuth(jwtSvc), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey))
	})

	// Anonymous request passes with no identity.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())

	// Garbage token is ignored, not rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Body.String())

	// Valid token resolves the viewer.
	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-42"})
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-42", w.Body.String())
}
