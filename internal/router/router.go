package router

import (
	"fmt"
	"log"

	"github.com/anonto42/blango/backend/internal/handlers"
	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/render"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/anonto42/blango/backend/pkg/config"
	"github.com/anonto42/blango/backend/web"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Repositories bundles the stores the handlers depend on
type Repositories struct {
	Users     repositories.UserRepository
	Tags      repositories.TagRepository
	Posts     repositories.PostRepository
	Revisions repositories.RevisionRepository
}

// NewRepositories builds the SQL-backed stores. Revision history is kept in
// Mongo when mgdb is set and discarded otherwise.
func NewRepositories(pgdb *gorm.DB, mgdb *mongo.Database) *Repositories {
	var revisions repositories.RevisionRepository = repositories.NopRevisionRepository{}
	if mgdb != nil {
		revisions = repositories.NewMongoRevisionRepository(mgdb)
	} else {
		log.Println("MONGO_URI not set, post revisions will not be recorded.")
	}
	return &Repositories{
		Users:     repositories.NewPostgresUserRepository(pgdb),
		Tags:      repositories.NewPostgresTagRepository(pgdb),
		Posts:     repositories.NewPostgresPostRepository(pgdb),
		Revisions: revisions,
	}
}

// SetupRoutes configures all application routes and injects dependencies.
// verifier may be nil, in which case Firebase login answers 501.
func SetupRoutes(e *echo.Echo, cfg *config.Config, repos *Repositories, verifier handlers.IDTokenVerifier) error {
	renderer, err := render.NewTemplateRegistry(web.Templates, web.Pages...)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	e.Renderer = renderer

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	pageHandler := handlers.NewPageHandler(repos.Posts)
	pageHandler.RegisterPageRoutes(e)
	log.Println("Page routes configured.")

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(repos.Users, verifier, handlers.AuthSettings{
		Secret:         cfg.SecretKey,
		TokenTTL:       cfg.TokenTTL,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
	})
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	authenticate := middleware.Authenticate(repos.Users, cfg.SecretKey)

	// Profile routes require a user for every method
	profile := e.Group("/api/v1", authenticate...)
	profile.Use(middleware.IsAuthenticated())
	userHandler := handlers.NewUserHandler(repos.Users)
	userHandler.RegisterProfileRoutes(profile)
	log.Println("Profile routes configured.")

	// Everything else is readable anonymously and writable when authenticated
	api := e.Group("/api/v1", authenticate...)
	api.Use(middleware.IsAuthenticatedOrReadOnly())

	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	postHandler := handlers.NewPostHandler(repos.Posts, repos.Tags, repos.Users, repos.Revisions)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	tagHandler := handlers.NewTagHandler(repos.Tags)
	tagHandler.RegisterTagRoutes(api)
	log.Println("Tag routes configured.")

	log.Println("All routes configured.")
	return nil
}
