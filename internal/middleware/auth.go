package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/blango/backend/internal/auth"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

const (
	// SessionCookie carries the signed token for browser sessions
	SessionCookie = "sessionid"
	// CSRFCookie and CSRFHeader implement the double-submit check for session requests
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"

	userContextKey  = "user"
	tokenContextKey = "token"
)

// CurrentUser returns the authenticated user, or nil for anonymous requests
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// Authenticate returns the authentication chain: HTTP Basic, then bearer
// token, then session cookie. Requests without credentials pass through
// anonymously; invalid credentials are rejected with 401.
func Authenticate(users repositories.UserRepository, secret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		BasicAuth(users),
		TokenAuth(secret),
		LoadUser(users),
		SessionCSRF(),
	}
}

// BasicAuth authenticates "Authorization: Basic" requests by email and password
func BasicAuth(users repositories.UserRepository) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(c echo.Context) bool {
			return !hasScheme(c, "basic")
		},
		Realm: "api",
		Validator: func(email, password string, c echo.Context) (bool, error) {
			user, err := users.GetUserByEmail(c.Request().Context(), email)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			ok, _, err := auth.CheckPassword(password, user.Password)
			if err != nil {
				c.Logger().Warnf("unusable password hash for user %d: %v", user.ID, err)
				return false, nil
			}
			if !ok {
				return false, nil
			}
			c.Set(userContextKey, user)
			return true, nil
		},
	})
}

// TokenAuth verifies a signed token taken from the Authorization header
// ("Bearer" or "Token" scheme) or from the session cookie.
func TokenAuth(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		ContextKey:  tokenContextKey,
		TokenLookup: "header:Authorization:Bearer ,header:Authorization:Token ,cookie:" + SessionCookie,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.JwtCustomClaims)
		},
		Skipper: func(c echo.Context) bool {
			if hasScheme(c, "bearer") || hasScheme(c, "token") {
				return false
			}
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				return true
			}
			_, err := c.Cookie(SessionCookie)
			return err != nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		},
	})
}

// LoadUser resolves the user named by a verified token
func LoadUser(users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok || CurrentUser(c) != nil {
				return next(c)
			}
			claims, ok := token.Claims.(*models.JwtCustomClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			user, err := users.GetUserByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
			}
			if err != nil {
				c.Logger().Errorf("load user %d: %v", claims.UserID, err)
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// SessionCSRF requires the double-submit CSRF token on unsafe requests that
// are authenticated only by the session cookie.
func SessionCSRF() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				return true
			}
			_, err := c.Cookie(SessionCookie)
			return err != nil
		},
		TokenLookup:    "header:" + CSRFHeader,
		CookieName:     CSRFCookie,
		CookiePath:     "/",
		CookieHTTPOnly: false,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

// IsAuthenticatedOrReadOnly lets anonymous requests through for safe methods only
func IsAuthenticatedOrReadOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isSafeMethod(c.Request().Method) || CurrentUser(c) != nil {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
		}
	}
}

// IsAuthenticated rejects anonymous requests
func IsAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}
			return next(c)
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func hasScheme(c echo.Context, scheme string) bool {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	return len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)+1], scheme+" ")
}
