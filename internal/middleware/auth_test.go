package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/blango/backend/internal/auth"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories/mock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupEcho(t *testing.T) (*echo.Echo, *models.User) {
	t.Helper()
	users := mock.NewUserRepository()
	hash, err := auth.HashPassword("correct-horse-1")
	require.NoError(t, err)
	user := &models.User{Email: "alice@example.com", Password: hash}
	require.NoError(t, users.CreateUser(context.Background(), user))

	e := echo.New()
	g := e.Group("", Authenticate(users, testSecret)...)
	g.Use(IsAuthenticatedOrReadOnly())
	handler := func(c echo.Context) error {
		if u := CurrentUser(c); u != nil {
			return c.String(http.StatusOK, u.Email)
		}
		return c.String(http.StatusOK, "anonymous")
	}
	g.GET("/whoami", handler)
	g.POST("/whoami", handler)
	return e, user
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAnonymousReadOnly(t *testing.T) {
	e, _ := setupEcho(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodPost, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	e, _ := setupEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/whoami", nil)
	req.SetBasicAuth("alice@example.com", "correct-horse-1")
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.SetBasicAuth("alice@example.com", "wrong")
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.SetBasicAuth("nobody@example.com", "correct-horse-1")
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	e, user := setupEcho(t)
	token, err := auth.IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	for _, scheme := range []string{"Bearer ", "Token "} {
		req := httptest.NewRequest(http.MethodPost, "/whoami", nil)
		req.Header.Set(echo.HeaderAuthorization, scheme+token)
		rec := serve(e, req)
		assert.Equal(t, http.StatusOK, rec.Code, scheme)
		assert.Equal(t, "alice@example.com", rec.Body.String())
	}

	forged, err := auth.IssueToken("another-secret", user, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	expired, err := auth.IssueToken(testSecret, user, -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestTokenForDeletedUser(t *testing.T) {
	e, _ := setupEcho(t)
	token, err := auth.IssueToken(testSecret, &models.User{ID: 404, Email: "ghost@example.com"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestSessionCookie(t *testing.T) {
	e, user := setupEcho(t)
	token, err := auth.IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", rec.Body.String())

	t.Run("unsafe request needs csrf token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := serve(e, req)
		assert.NotEqual(t, http.StatusOK, rec.Code)

		req = httptest.NewRequest(http.MethodPost, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: "a-csrf-token-value"})
		req.Header.Set(CSRFHeader, "a-csrf-token-value")
		rec = serve(e, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice@example.com", rec.Body.String())
	})
}

func TestIsAuthenticated(t *testing.T) {
	e := echo.New()
	e.GET("/private", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, IsAuthenticated())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
