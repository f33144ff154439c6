package repositories

import (
	"context"

	"github.com/anonto42/blango/backend/internal/models"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	GetPosts(ctx context.Context, filter models.PostFilter, skip, limit int) ([]models.Post, int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
}

// PostgresPostRepository implements PostRepository with gorm
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

func withTagsAndAuthor(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.value") }).
		Preload("Author")
}

// CreatePost inserts a post and its tag associations in one transaction.
// The tags must already exist.
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit("Author").Create(post).Error
}

// GetPostByID retrieves a post with its tags and author
func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Scopes(withTagsAndAuthor).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPosts retrieves a page of posts, newest first, and the total count matching filter
func (r *PostgresPostRepository) GetPosts(ctx context.Context, filter models.PostFilter, skip, limit int) ([]models.Post, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("posts.status = ?", filter.Status)
		}
		if filter.AuthorID != 0 {
			db = db.Where("posts.author_id = ?", filter.AuthorID)
		}
		if filter.PublishedOnly {
			if filter.DraftsOf != 0 {
				db = db.Where("(posts.status = ? OR posts.author_id = ?)", models.StatusPublished, filter.DraftsOf)
			} else {
				db = db.Where("posts.status = ?", models.StatusPublished)
			}
		}
		if filter.Tag != "" {
			tagged := r.db.Table("post_tags").
				Select("post_tags.post_id").
				Joins("JOIN tags ON tags.id = post_tags.tag_id").
				Where("tags.value = ?", filter.Tag)
			db = db.Where("posts.id IN (?)", tagged)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Scopes(scope, withTagsAndAuthor).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(skip).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// UpdatePost writes the mutable fields and replaces the tag set atomically.
// The author and creation time are never written.
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(post).Select("title", "body", "status", "modified_at").Updates(post)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		tags := tx.Model(post).Association("Tags")
		if len(post.Tags) == 0 {
			return tags.Clear()
		}
		return tags.Replace(post.Tags)
	})
}

// DeletePost deletes a post and its tag associations
func (r *PostgresPostRepository) DeletePost(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Select("Tags").Delete(&models.Post{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
