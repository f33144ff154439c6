package repositories

import (
	"context"

	"github.com/anonto42/blango/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RevisionRepository stores the edit history of posts
type RevisionRepository interface {
	CreateRevision(ctx context.Context, revision *models.PostRevision) error
	GetRevisionsByPostID(ctx context.Context, postID uint, skip, limit int64) ([]models.PostRevision, error)
}

// MongoRevisionRepository implements RevisionRepository for MongoDB
type MongoRevisionRepository struct {
	collection *mongo.Collection
}

// NewMongoRevisionRepository creates a new MongoRevisionRepository
func NewMongoRevisionRepository(db *mongo.Database) *MongoRevisionRepository {
	return &MongoRevisionRepository{collection: db.Collection("post_revisions")}
}

// CreateRevision appends a revision document
func (r *MongoRevisionRepository) CreateRevision(ctx context.Context, revision *models.PostRevision) error {
	revision.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, revision)
	return err
}

// GetRevisionsByPostID retrieves revisions of a post, newest first
func (r *MongoRevisionRepository) GetRevisionsByPostID(ctx context.Context, postID uint, skip, limit int64) ([]models.PostRevision, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"post_id": postID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	revisions := []models.PostRevision{}
	if err = cursor.All(ctx, &revisions); err != nil {
		return nil, err
	}
	return revisions, nil
}

// NopRevisionRepository discards revisions. Used when MongoDB is not configured.
type NopRevisionRepository struct{}

func (NopRevisionRepository) CreateRevision(context.Context, *models.PostRevision) error {
	return nil
}

func (NopRevisionRepository) GetRevisionsByPostID(context.Context, uint, int64, int64) ([]models.PostRevision, error) {
	return []models.PostRevision{}, nil
}
