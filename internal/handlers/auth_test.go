package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeVerifier struct {
	tokens map[string]*auth.Token
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	token, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return token, nil
}

func googleToken(uid string, claims map[string]interface{}) *auth.Token {
	return &auth.Token{UID: uid, Firebase: auth.FirebaseInfo{SignInProvider: "google.com"}, Claims: claims}
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func sessionCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"name":"Carol","email":" Carol@Example.com ","password":"correct-horse-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got tokenResponse
	decode(t, rec, &got)
	assert.NotEmpty(t, got.Token)
	assert.Equal(t, "carol@example.com", got.User.Email)
	assert.NotContains(t, rec.Body.String(), "argon2id")

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, got.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	stored, err := s.users.GetUserByEmail(context.Background(), "carol@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Password, "argon2id$"))

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup",
		`{"email":"carol@example.com","password":"another-horse-2"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", `{"email":"carol@example.com","password":"12345678"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs map[string][]string
	decode(t, rec, &errs)
	assert.NotEmpty(t, errs["password"])

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup", `{"email":"not-an-email","password":"correct-horse-1"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignIn(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", `{"email":"carol@example.com","password":"correct-horse-1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signin", `{"email":"carol@example.com","password":"wrong-horse-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signin", `{"email":"nobody@example.com","password":"correct-horse-1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signin", `{"email":"carol@example.com","password":"correct-horse-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	// The session cookie authenticates reads
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.AddCookie(cookie)
	profile := serveRequest(s, req)
	require.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), "carol@example.com")
}

func TestSignInUpgradesBcryptHash(t *testing.T) {
	s := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Email: "legacy@example.com", Password: string(hash)}
	require.NoError(t, s.users.CreateUser(context.Background(), user))

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signin", `{"email":"legacy@example.com","password":"correct-horse-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := s.users.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Password, "argon2id$"))
}

func TestSignOut(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signout", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestFirebaseLogin(t *testing.T) {
	verifier := &fakeVerifier{tokens: map[string]*auth.Token{
		"new-user":   googleToken("uid-1", map[string]interface{}{"email": "dave@example.com", "email_verified": true, "name": "Dave"}),
		"existing":   googleToken("uid-2", map[string]interface{}{"email": "alice@example.com", "email_verified": true, "name": "Alice"}),
		"no-email":   googleToken("uid-3", map[string]interface{}{}),
		"unverified": googleToken("uid-4", map[string]interface{}{"email": "admin@example.com", "email_verified": false}),
		"password-provider": {
			UID:      "uid-5",
			Firebase: auth.FirebaseInfo{SignInProvider: "password"},
			Claims:   map[string]interface{}{"email": "admin@example.com", "email_verified": true},
		},
	}}
	s := newTestServerWithVerifier(t, verifier)
	alice := s.createUser(t, "alice@example.com", false)
	admin := s.createUser(t, "admin@example.com", true)

	t.Run("creates a user", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"new-user"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got tokenResponse
		decode(t, rec, &got)
		assert.Equal(t, "dave@example.com", got.User.Email)

		user, err := s.users.GetUserByFirebaseUID(context.Background(), "uid-1")
		require.NoError(t, err)
		assert.Equal(t, "Dave", user.Name)

		// Signing in again finds the same account
		rec = s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"new-user"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)
		assert.Equal(t, user.ID, got.User.ID)
	})

	t.Run("links an existing email", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"existing"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got tokenResponse
		decode(t, rec, &got)
		assert.Equal(t, alice.ID, got.User.ID)

		linked, err := s.users.GetUserByFirebaseUID(context.Background(), "uid-2")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, linked.ID)
	})

	t.Run("never links an unverified email", func(t *testing.T) {
		for _, idToken := range []string{"unverified", "password-provider"} {
			rec := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"`+idToken+`"}`, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, idToken)
			assert.Nil(t, sessionCookie(rec), idToken)
		}

		stored, err := s.users.GetUserByID(context.Background(), admin.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.FirebaseUID)
		_, err = s.users.GetUserByFirebaseUID(context.Background(), "uid-4")
		assert.Error(t, err)
	})

	t.Run("rejects bad tokens", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"forged"}`, nil).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"no-email"}`, nil).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{}`, nil).Code)
	})
}

func TestFirebaseLoginDisabled(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", `{"idToken":"anything"}`, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
