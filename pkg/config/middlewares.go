package config

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware installs the global middleware stack for cfg's environment
func SetupMiddleware(e *echo.Echo, cfg *Config) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s %d %s %s: %v", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s %s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(AllowedHosts(cfg.AllowedHosts))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         hstsMaxAge(cfg),
		ReferrerPolicy:     "same-origin",
	}))
	e.Use(middleware.CORS())
}

func hstsMaxAge(cfg *Config) int {
	if cfg.IsProduction() && cfg.CookieSecure {
		return 31536000
	}
	return 0
}

// AllowedHosts rejects requests whose Host header is not listed.
// "*" allows any host and a leading dot matches the domain and its subdomains.
func AllowedHosts(hosts []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HostAllowed(c.Request().Host, hosts) {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid HTTP_HOST header")
			}
			return next(c)
		}
	}
}

// HostAllowed reports whether host (optionally with a port) matches one of patterns
func HostAllowed(host string, patterns []string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}
