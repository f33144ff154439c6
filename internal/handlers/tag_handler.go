package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// TagHandler handles HTTP requests related to tags
type TagHandler struct {
	tagRepository repositories.TagRepository
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagRepo repositories.TagRepository) *TagHandler {
	return &TagHandler{tagRepository: tagRepo}
}

// RegisterTagRoutes registers tag-related routes
func (h *TagHandler) RegisterTagRoutes(g *echo.Group) {
	g.GET("/tags", h.GetTags)
	g.POST("/tags", h.CreateTag)
	g.GET("/tags/:value", h.GetTag)
	g.DELETE("/tags/:value", h.DeleteTag)
}

// GetTags lists every tag
func (h *TagHandler) GetTags(c echo.Context) error {
	tags, err := h.tagRepository.GetTags(c.Request().Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, tags)
}

// GetTag retrieves a tag by value
func (h *TagHandler) GetTag(c echo.Context) error {
	tag, err := h.tagRepository.GetTagByValue(c.Request().Context(), c.Param("value"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Tag not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

// CreateTag creates a tag with a unique value
func (h *TagHandler) CreateTag(c echo.Context) error {
	var req models.CreateTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Value = strings.TrimSpace(req.Value)

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tag := &models.Tag{Value: req.Value}
	if err := h.tagRepository.CreateTag(c.Request().Context(), tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, map[string][]string{
				"value": {"tag with this value already exists."},
			})
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, tag)
}

// DeleteTag deletes a tag. Staff only.
func (h *TagHandler) DeleteTag(c echo.Context) error {
	if !middleware.CurrentUser(c).IsStaff {
		return echo.NewHTTPError(http.StatusForbidden, "Only staff may delete tags")
	}

	ctx := c.Request().Context()
	tag, err := h.tagRepository.GetTagByValue(ctx, c.Param("value"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Tag not found")
		}
		return internalError(c, err)
	}
	if err := h.tagRepository.DeleteTag(ctx, tag.ID); err != nil {
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
