package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/blango/backend/internal/auth"
	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/render"
	"github.com/anonto42/blango/backend/internal/repositories/mock"
	"github.com/anonto42/blango/backend/web"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testServer struct {
	e         *echo.Echo
	users     *mock.UserRepository
	tags      *mock.TagRepository
	posts     *mock.PostRepository
	revisions *mock.RevisionRepository
	verifier  IDTokenVerifier
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithVerifier(t, nil)
}

func newTestServerWithVerifier(t *testing.T, verifier IDTokenVerifier) *testServer {
	t.Helper()
	s := &testServer{
		e:         echo.New(),
		users:     mock.NewUserRepository(),
		tags:      mock.NewTagRepository(),
		revisions: mock.NewRevisionRepository(),
		verifier:  verifier,
	}
	s.posts = mock.NewPostRepository(s.users, s.tags)

	renderer, err := render.NewTemplateRegistry(web.Templates, web.Pages...)
	require.NoError(t, err)
	s.e.Renderer = renderer

	NewPageHandler(s.posts).RegisterPageRoutes(s.e)

	NewAuthHandler(s.users, verifier, AuthSettings{
		Secret:         testSecret,
		TokenTTL:       time.Hour,
		CookieSameSite: http.SameSiteLaxMode,
	}).RegisterAuthRoutes(s.e.Group("/api/v1/auth"))

	authenticate := middleware.Authenticate(s.users, testSecret)
	userHandler := NewUserHandler(s.users)

	profile := s.e.Group("/api/v1", authenticate...)
	profile.Use(middleware.IsAuthenticated())
	userHandler.RegisterProfileRoutes(profile)

	api := s.e.Group("/api/v1", authenticate...)
	api.Use(middleware.IsAuthenticatedOrReadOnly())
	userHandler.RegisterUserRoutes(api)
	NewPostHandler(s.posts, s.tags, s.users, s.revisions).RegisterPostRoutes(api)
	NewTagHandler(s.tags).RegisterTagRoutes(api)
	return s
}

func (s *testServer) createUser(t *testing.T, email string, staff bool) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: strings.Split(email, "@")[0], IsStaff: staff}
	require.NoError(t, s.users.CreateUser(context.Background(), user))
	return user
}

func (s *testServer) createTag(t *testing.T, value string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Value: value}
	require.NoError(t, s.tags.CreateTag(context.Background(), tag))
	return tag
}

func (s *testServer) createPost(t *testing.T, author *models.User, title string, status models.PostStatus, tags ...*models.Tag) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Body: "Body of " + title, Status: status, AuthorID: author.ID}
	for _, tag := range tags {
		post.Tags = append(post.Tags, *tag)
	}
	require.NoError(t, s.posts.CreatePost(context.Background(), post))
	return post
}

// do sends a request, authenticated with a bearer token when user is set
func (s *testServer) do(t *testing.T, method, target string, body string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != nil {
		token, err := auth.IssueToken(testSecret, user, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func serveRequest(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}
