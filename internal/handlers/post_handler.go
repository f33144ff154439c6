package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/anonto42/blango/backend/internal/serializers"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository     repositories.PostRepository
	revisionRepository repositories.RevisionRepository
	serializer         *serializers.PostSerializer
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, tagRepo repositories.TagRepository, userRepo repositories.UserRepository, revisionRepo repositories.RevisionRepository) *PostHandler {
	return &PostHandler{
		postRepository:     postRepo,
		revisionRepository: revisionRepo,
		serializer:         serializers.NewPostSerializer(tagRepo, userRepo),
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.GET("/posts", h.GetPosts)
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.PATCH("/posts/:id", h.PartialUpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/posts/:id/revisions", h.GetRevisions)
}

// GetPosts lists posts, newest first. Filters: status, author (email), tag.
func (h *PostHandler) GetPosts(c echo.Context) error {
	ctx := c.Request().Context()
	page, limit := pagination(c, 10)

	filter := models.PostFilter{
		Status: models.PostStatus(c.QueryParam("status")),
		Tag:    c.QueryParam("tag"),
	}
	if user := middleware.CurrentUser(c); user == nil || !user.IsStaff {
		filter.PublishedOnly = true
		if user != nil {
			filter.DraftsOf = user.ID
		}
	}
	if email := c.QueryParam("author"); email != "" {
		author, err := h.serializer.ResolveAuthor(ctx, email)
		if err != nil {
			return serializerError(c, err)
		}
		filter.AuthorID = author.ID
	}

	posts, total, err := h.postRepository.GetPosts(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": h.serializer.RepresentMany(posts, requestLinker{c}),
		},
		"meta": pageMeta(page, limit, total),
	})
}

// GetPost retrieves a post by ID. Drafts are only shown to their author and staff.
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	if !post.VisibleTo(middleware.CurrentUser(c)) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return c.JSON(http.StatusOK, h.serializer.Represent(post, requestLinker{c}))
}

// CreatePost creates a post authored by the authenticated user
func (h *PostHandler) CreatePost(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	in, err := h.serializer.Deserialize(ctx, body, false)
	if err != nil {
		return serializerError(c, err)
	}

	post := &models.Post{AuthorID: user.ID}
	in.Apply(post)
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return internalError(c, err)
	}

	created, err := h.postRepository.GetPostByID(ctx, post.ID)
	if err != nil {
		return internalError(c, err)
	}
	h.recordRevision(c, created, user, models.RevisionCreated)

	return c.JSON(http.StatusCreated, h.serializer.Represent(created, requestLinker{c}))
}

// UpdatePost replaces the writable fields of a post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	return h.update(c, false)
}

// PartialUpdatePost changes only the supplied fields of a post
func (h *PostHandler) PartialUpdatePost(c echo.Context) error {
	return h.update(c, true)
}

func (h *PostHandler) update(c echo.Context, partial bool) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	if !user.CanModify(post.AuthorID) {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	in, err := h.serializer.Deserialize(ctx, body, partial)
	if err != nil {
		return serializerError(c, err)
	}

	before := *post
	before.Tags = append([]models.Tag(nil), post.Tags...)
	in.Apply(post)
	if sameContent(&before, post) {
		// Nothing to write, so modified_at and the history stay as they are
		return c.JSON(http.StatusOK, h.serializer.Represent(&before, requestLinker{c}))
	}
	if err := h.postRepository.UpdatePost(ctx, post); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return internalError(c, err)
	}

	updated, err := h.postRepository.GetPostByID(ctx, post.ID)
	if err != nil {
		return internalError(c, err)
	}
	h.recordRevision(c, updated, user, models.RevisionUpdated)

	return c.JSON(http.StatusOK, h.serializer.Represent(updated, requestLinker{c}))
}

// DeletePost deletes a post owned by the user, or any post for staff
func (h *PostHandler) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	if !user.CanModify(post.AuthorID) {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(ctx, post.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return internalError(c, err)
	}
	h.recordRevision(c, post, user, models.RevisionDeleted)

	return c.NoContent(http.StatusNoContent)
}

// GetRevisions lists the edit history of a post, newest first. It follows the
// visibility of the post; the history of a deleted post is shown to staff only.
func (h *PostHandler) GetRevisions(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.postRepository.GetPostByID(ctx, id)
	switch {
	case err == nil:
		if !post.VisibleTo(user) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if user == nil || !user.IsStaff {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
	default:
		return internalError(c, err)
	}
	page, limit := pagination(c, 20)

	revisions, err := h.revisionRepository.GetRevisionsByPostID(ctx, id, int64((page-1)*limit), int64(limit))
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"revisions": revisions},
	})
}

func (h *PostHandler) loadPost(c echo.Context) (*models.Post, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return nil, internalError(c, err)
	}
	return post, nil
}

// recordRevision stores a snapshot of post. The post change is already
// committed, so a failure here is logged and does not fail the request.
func (h *PostHandler) recordRevision(c echo.Context, post *models.Post, editor *models.User, action string) {
	revision := models.NewPostRevision(post, editor, action)
	if err := h.revisionRepository.CreateRevision(c.Request().Context(), revision); err != nil {
		c.Logger().Errorf("record %s revision of post %d: %v", action, post.ID, err)
	}
}

// sameContent reports whether a and b carry the same writable content.
// Tags are compared as sets of values.
func sameContent(a, b *models.Post) bool {
	if a.Title != b.Title || a.Body != b.Body || a.Status != b.Status || len(a.Tags) != len(b.Tags) {
		return false
	}
	values := make(map[string]bool, len(a.Tags))
	for _, t := range a.Tags {
		values[t.Value] = true
	}
	for _, t := range b.Tags {
		if !values[t.Value] {
			return false
		}
	}
	return true
}
