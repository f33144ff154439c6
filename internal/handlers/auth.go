package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	appauth "github.com/anonto42/blango/backend/internal/auth"
	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// googleProvider is the Firebase sign-in provider accepted for social login
const googleProvider = "google.com"

// IDTokenVerifier verifies Firebase ID tokens; *auth.Client satisfies it
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthSettings parameterize token issuing and the session cookie
type AuthSettings struct {
	Secret         string
	TokenTTL       time.Duration
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   IDTokenVerifier
	settings       AuthSettings
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables social login.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth IDTokenVerifier, settings AuthSettings) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		settings:       settings,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/signout", h.SignOut)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup registers a local user with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Email = normalizeEmail(req.Email)

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if problems := appauth.ValidatePassword(req.Password, req.Email); len(problems) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, map[string][]string{"password": problems})
	}

	_, err := h.userRepository.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return internalError(c, err)
	}

	hashedPassword, err := appauth.HashPassword(req.Password)
	if err != nil {
		return internalError(c, err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
		}
		return internalError(c, err)
	}

	return h.respondWithToken(c, http.StatusCreated, user)
}

// SignIn authenticates a local user with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SigninRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Email = normalizeEmail(req.Email)

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return internalError(c, err)
	}

	ok, rehash, err := appauth.CheckPassword(req.Password, user.Password)
	if err != nil {
		c.Logger().Warnf("unusable password hash for user %d: %v", user.ID, err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if rehash {
		if upgraded, err := appauth.HashPassword(req.Password); err == nil {
			user.Password = upgraded
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				c.Logger().Errorf("upgrade password hash for user %d: %v", user.ID, err)
			}
		}
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

// SignOut clears the session cookie
func (h *AuthHandler) SignOut(c echo.Context) error {
	cookie := h.sessionCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	c.SetCookie(cookie)
	return c.NoContent(http.StatusNoContent)
}

// FirebaseLogin verifies a Firebase ID token from a Google sign-in and issues a local token
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Social login is not configured")
	}
	ctx := c.Request().Context()

	var req models.FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	if token.Firebase.SignInProvider != googleProvider {
		return echo.NewHTTPError(http.StatusUnauthorized, "Only Google sign-in is supported")
	}
	email, _ := token.Claims["email"].(string)
	email = normalizeEmail(email)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email address")
	}
	// Accounts are matched by email, so the provider must have verified it
	if verified, _ := token.Claims["email_verified"].(bool); !verified {
		return echo.NewHTTPError(http.StatusUnauthorized, "Firebase email address is not verified")
	}
	name, _ := token.Claims["name"].(string)

	user, err := h.linkFirebaseUser(ctx, token.UID, email, name)
	if err != nil {
		return internalError(c, err)
	}

	return h.respondWithToken(c, http.StatusOK, user)
}

// linkFirebaseUser finds the user by Firebase UID, then by email, creating
// one when neither matches
func (h *AuthHandler) linkFirebaseUser(ctx context.Context, uid, email, name string) (*models.User, error) {
	user, err := h.userRepository.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		if name != "" && user.Name != name {
			user.Name = name
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err = h.userRepository.GetUserByEmail(ctx, email)
	if err == nil {
		user.FirebaseUID = &uid
		if user.Name == "" {
			user.Name = name
		}
		if err := h.userRepository.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &models.User{
		Name:        name,
		Email:       email,
		FirebaseUID: &uid,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, user *models.User) error {
	token, err := appauth.IssueToken(h.settings.Secret, user, h.settings.TokenTTL)
	if err != nil {
		return internalError(c, err)
	}
	c.SetCookie(h.sessionCookie(token))
	return c.JSON(status, echo.Map{"token": token, "user": user})
}

func (h *AuthHandler) sessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.settings.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.settings.CookieSecure,
		SameSite: h.settings.CookieSameSite,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
