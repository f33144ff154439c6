// Package mock provides in-memory repositories for tests.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/blango/backend/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	users  map[uint]*models.User
	nextID uint
	mutex  sync.RWMutex
}

type TagRepository struct {
	tags   map[uint]*models.Tag
	nextID uint
	mutex  sync.RWMutex
}

type PostRepository struct {
	posts  map[uint]*models.Post
	nextID uint
	users  *UserRepository
	tags   *TagRepository
	mutex  sync.RWMutex

	// Err, when set, is returned by every write
	Err error
}

type RevisionRepository struct {
	revisions []models.PostRevision
	mutex     sync.RWMutex
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uint]*models.User), nextID: 1}
}

func NewTagRepository() *TagRepository {
	return &TagRepository{tags: make(map[uint]*models.Tag), nextID: 1}
}

// NewPostRepository hydrates authors and tags from users and tags on read
func NewPostRepository(users *UserRepository, tags *TagRepository) *PostRepository {
	return &PostRepository{posts: make(map[uint]*models.Post), nextID: 1, users: users, tags: tags}
}

func NewRevisionRepository() *RevisionRepository {
	return &RevisionRepository{}
}

// UserRepository implementation
func (m *UserRepository) CreateUser(_ context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = m.nextID
	m.nextID++
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	user := *u
	return &user, nil
}

func (m *UserRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, u := range m.users {
		if match(u) {
			user := *u
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *UserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *UserRepository) GetUserByFirebaseUID(_ context.Context, firebaseUID string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID })
}

func (m *UserRepository) GetUsers(ctx context.Context) ([]models.User, error) {
	return m.SearchUsers(ctx, "")
}

func (m *UserRepository) UpdateUser(_ context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) DeleteUser(_ context.Context, id uint) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *UserRepository) SearchUsers(_ context.Context, query string) ([]models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	q := strings.ToLower(query)
	users := []models.User{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Email), q) || strings.Contains(strings.ToLower(u.Name), q) {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// TagRepository implementation
func (m *TagRepository) CreateTag(_ context.Context, tag *models.Tag) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, t := range m.tags {
		if t.Value == tag.Value {
			return gorm.ErrDuplicatedKey
		}
	}
	tag.ID = m.nextID
	m.nextID++
	tag.CreatedAt = time.Now()
	stored := *tag
	m.tags[tag.ID] = &stored
	return nil
}

func (m *TagRepository) GetTagByValue(_ context.Context, value string) (*models.Tag, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, t := range m.tags {
		if t.Value == value {
			tag := *t
			return &tag, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *TagRepository) GetTags(_ context.Context) ([]models.Tag, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	tags := make([]models.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		tags = append(tags, *t)
	}
	sortTags(tags)
	return tags, nil
}

func (m *TagRepository) DeleteTag(_ context.Context, id uint) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.tags[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.tags, id)
	return nil
}

func (m *TagRepository) exists(id uint) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.tags[id]
	return ok
}

func sortTags(tags []models.Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].Value < tags[j].Value })
}

// PostRepository implementation
func (m *PostRepository) CreatePost(_ context.Context, post *models.Post) error {
	if m.Err != nil {
		return m.Err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post.ID = m.nextID
	m.nextID++
	now := time.Now()
	post.CreatedAt, post.ModifiedAt = now, now
	m.posts[post.ID] = clonePost(post)
	return nil
}

func (m *PostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	m.mutex.RLock()
	p, ok := m.posts[id]
	m.mutex.RUnlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.hydrate(ctx, p), nil
}

func (m *PostRepository) GetPosts(ctx context.Context, filter models.PostFilter, skip, limit int) ([]models.Post, int64, error) {
	m.mutex.RLock()
	var matched []*models.Post
	for _, p := range m.posts {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Tag != "" && !hasTag(p, filter.Tag) {
			continue
		}
		if filter.PublishedOnly && p.Status != models.StatusPublished && (filter.DraftsOf == 0 || p.AuthorID != filter.DraftsOf) {
			continue
		}
		matched = append(matched, p)
	}
	m.mutex.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	posts := []models.Post{}
	for i := skip; i < len(matched) && i < skip+limit; i++ {
		posts = append(posts, *m.hydrate(ctx, matched[i]))
	}
	return posts, total, nil
}

func (m *PostRepository) UpdatePost(_ context.Context, post *models.Post) error {
	if m.Err != nil {
		return m.Err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, ok := m.posts[post.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	post.ModifiedAt = time.Now()
	existing.Title = post.Title
	existing.Body = post.Body
	existing.Status = post.Status
	existing.ModifiedAt = post.ModifiedAt
	existing.Tags = append([]models.Tag(nil), post.Tags...)
	return nil
}

func (m *PostRepository) DeletePost(_ context.Context, id uint) error {
	if m.Err != nil {
		return m.Err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.posts, id)
	return nil
}

// Count returns the number of stored posts
func (m *PostRepository) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.posts)
}

func (m *PostRepository) hydrate(ctx context.Context, p *models.Post) *models.Post {
	post := clonePost(p)
	if author, err := m.users.GetUserByID(ctx, post.AuthorID); err == nil {
		post.Author = *author
	}
	tags := post.Tags[:0]
	for _, t := range post.Tags {
		if m.tags.exists(t.ID) {
			tags = append(tags, t)
		}
	}
	post.Tags = tags
	sortTags(post.Tags)
	return post
}

func clonePost(p *models.Post) *models.Post {
	post := *p
	post.Author = models.User{}
	post.Tags = append([]models.Tag{}, p.Tags...)
	return &post
}

func hasTag(p *models.Post, value string) bool {
	for _, t := range p.Tags {
		if t.Value == value {
			return true
		}
	}
	return false
}

// RevisionRepository implementation
func (m *RevisionRepository) CreateRevision(_ context.Context, revision *models.PostRevision) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.revisions = append(m.revisions, *revision)
	return nil
}

func (m *RevisionRepository) GetRevisionsByPostID(_ context.Context, postID uint, skip, limit int64) ([]models.PostRevision, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	revisions := []models.PostRevision{}
	for i := len(m.revisions) - 1; i >= 0; i-- {
		if m.revisions[i].PostID == postID {
			revisions = append(revisions, m.revisions[i])
		}
	}
	if skip >= int64(len(revisions)) {
		return []models.PostRevision{}, nil
	}
	revisions = revisions[skip:]
	if limit > 0 && int64(len(revisions)) > limit {
		revisions = revisions[:limit]
	}
	return revisions, nil
}
