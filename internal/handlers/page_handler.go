package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// PageHandler serves the server-rendered blog pages. Only published posts
// are visible here.
type PageHandler struct {
	postRepository repositories.PostRepository
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(postRepo repositories.PostRepository) *PageHandler {
	return &PageHandler{postRepository: postRepo}
}

// RegisterPageRoutes registers the HTML routes
func (h *PageHandler) RegisterPageRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/post/:id", h.PostDetail)
}

// Index renders the newest published posts
func (h *PageHandler) Index(c echo.Context) error {
	page, limit := pagination(c, 10)

	filter := models.PostFilter{Status: models.StatusPublished}
	posts, total, err := h.postRepository.GetPosts(c.Request().Context(), filter, (page-1)*limit, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.Render(http.StatusOK, "index.html", map[string]interface{}{
		"Posts":    posts,
		"HasNext":  int64(page*limit) < total,
		"NextPage": page + 1,
	})
}

// PostDetail renders one published post with its body as Markdown
func (h *PageHandler) PostDetail(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return internalError(c, err)
	}
	if post.Status != models.StatusPublished {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}

	return c.Render(http.StatusOK, "post.html", map[string]interface{}{"Post": post})
}
