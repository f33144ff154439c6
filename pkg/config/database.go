package config

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anonto42/blango/backend/internal/models"
	"github.com/glebarez/sqlite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connections
type DB struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
}

// InitDB opens the relational database named by cfg.DatabaseURL and, when
// configured, the MongoDB client used for revision history.
func InitDB(cfg *Config) (*DB, error) {
	sqlDB, err := OpenSQL(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		return nil, err
	}

	db := &DB{SQL: sqlDB}
	if cfg.MongoURI == "" {
		log.Println("MONGO_URI not set, post revision history is disabled.")
		return db, nil
	}

	db.Mongo, err = initMongo(cfg.MongoURI)
	if err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return db, nil
}

// OpenSQL opens a gorm connection for a postgres:// or sqlite:// URL
func OpenSQL(databaseURL string, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dialector = sqlite.Open(dsn + sep + "_pragma=foreign_keys(1)")
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", databaseURL)
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Successfully connected to %s database!", db.Dialector.Name())
	return db, nil
}

// Migrate creates or updates the relational schema
func (db *DB) Migrate() error {
	return AutoMigrate(db.SQL)
}

// AutoMigrate creates or updates the tables for users, tags and posts
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Tag{}, &models.Post{}); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	return nil
}

// MongoDatabase returns the named database, or nil when MongoDB is not configured
func (db *DB) MongoDatabase(name string) *mongo.Database {
	if db.Mongo == nil {
		return nil
	}
	return db.Mongo.Database(name)
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Println("Successfully connected to MongoDB!")
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err != nil {
			log.Printf("Error getting SQL DB from GORM: %v\n", err)
		} else if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing SQL connection: %v\n", err)
		} else {
			log.Println("SQL connection closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			log.Printf("Error closing MongoDB connection: %v\n", err)
		} else {
			log.Println("MongoDB connection closed.")
		}
	}
}
