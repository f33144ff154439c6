package main

import (
	"context"
	"log"

	"github.com/anonto42/blango/backend/internal/handlers"
	"github.com/anonto42/blango/backend/internal/router"
	"github.com/anonto42/blango/backend/pkg/config"
	"github.com/anonto42/blango/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}

	// Firebase is optional; without it social login is disabled
	var verifier handlers.IDTokenVerifier
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		verifier = firebaseApp.AuthClient
	}

	// Create Echo instance
	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = cfg.IsProduction()
	if cfg.Debug {
		e.Logger.SetLevel(glog.DEBUG)
	} else {
		e.Logger.SetLevel(glog.INFO)
	}

	// Setup global middleware
	config.SetupMiddleware(e, cfg)

	// Setup routes and dependencies
	repos := router.NewRepositories(db.SQL, db.MongoDatabase(cfg.MongoDatabase))
	if err := router.SetupRoutes(e, cfg, repos, verifier); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
