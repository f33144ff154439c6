package config

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const developmentSecret = "insecure-development-secret-do-not-use-in-production"

// Config holds the environment-specific settings of the service
type Config struct {
	Env                     string
	Debug                   bool
	Port                    string
	SecretKey               string
	AllowedHosts            []string
	DatabaseURL             string
	MongoURI                string
	MongoDatabase           string
	FirebaseCredentialsPath string
	CookieSecure            bool
	CookieSameSite          http.SameSite
	TokenTTL                time.Duration
}

// Load reads the configuration from the environment, after loading a .env
// file if one exists. Production refuses to start without a secret key and
// an explicit database.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	env := strings.ToLower(getEnv("ENV", EnvDevelopment))
	switch env {
	case "dev":
		env = EnvDevelopment
	case "prod", "pro":
		env = EnvProduction
	case EnvDevelopment, EnvProduction:
	default:
		return nil, fmt.Errorf("unknown ENV %q", env)
	}
	prod := env == EnvProduction

	cfg := &Config{
		Env:                     env,
		Port:                    getEnv("PORT", "8080"),
		SecretKey:               os.Getenv("SECRET_KEY"),
		AllowedHosts:            splitList(getEnv("ALLOWED_HOSTS", "localhost,127.0.0.1,0.0.0.0")),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		MongoURI:                os.Getenv("MONGO_URI"),
		MongoDatabase:           getEnv("MONGO_DATABASE", "blango"),
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
	}

	var err error
	if cfg.Debug, err = getBool("DEBUG", !prod); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", prod); err != nil {
		return nil, err
	}
	if cfg.CookieSameSite, err = parseSameSite(getEnv("COOKIE_SAMESITE", "lax")); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "72h")); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	if cfg.SecretKey == "" {
		if prod {
			return nil, errors.New("SECRET_KEY environment variable not set")
		}
		cfg.SecretKey = developmentSecret
	}
	if cfg.DatabaseURL == "" {
		if prod {
			return nil, errors.New("DATABASE_URL environment variable not set")
		}
		cfg.DatabaseURL = "sqlite://blango.db"
	}
	if cfg.CookieSameSite == http.SameSiteNoneMode && !cfg.CookieSecure {
		return nil, errors.New("COOKIE_SAMESITE=none requires COOKIE_SECURE=true")
	}

	return cfg, nil
}

// IsProduction reports whether the production profile is active
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(value) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("invalid COOKIE_SAMESITE %q", value)
}
