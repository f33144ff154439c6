package repositories

import (
	"context"

	"github.com/anonto42/blango/backend/internal/models"
	"gorm.io/gorm"
)

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	CreateTag(ctx context.Context, tag *models.Tag) error
	GetTagByValue(ctx context.Context, value string) (*models.Tag, error)
	GetTags(ctx context.Context) ([]models.Tag, error)
	DeleteTag(ctx context.Context, id uint) error
}

// PostgresTagRepository implements TagRepository with gorm
type PostgresTagRepository struct {
	db *gorm.DB
}

// NewPostgresTagRepository creates a new PostgresTagRepository
func NewPostgresTagRepository(db *gorm.DB) *PostgresTagRepository {
	return &PostgresTagRepository{db: db}
}

// CreateTag inserts a tag. A value already in use yields gorm.ErrDuplicatedKey
// when the connection was opened with TranslateError.
func (r *PostgresTagRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// GetTagByValue retrieves a tag by exact value
func (r *PostgresTagRepository) GetTagByValue(ctx context.Context, value string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("value = ?", value).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetTags retrieves every tag ordered by value
func (r *PostgresTagRepository) GetTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("value").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag removes a tag together with its post associations
func (r *PostgresTagRepository) DeleteTag(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Tag{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
