package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/anonto42/blango/backend/internal/middleware"
	"github.com/anonto42/blango/backend/internal/models"
	"github.com/anonto42/blango/backend/internal/repositories"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterUserRoutes registers the public user routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users", h.SearchUsers)
	g.GET("/users/:email", h.GetUser).Name = RouteUserDetail
}

// RegisterProfileRoutes registers the routes for the authenticated user's own profile
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
}

// GetUser returns the public details of the user with the given email
func (h *UserHandler) GetUser(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, user.ToDetail())
}

// SearchUsers lists users whose name or email contains ?q, or all users without it
func (h *UserHandler) SearchUsers(c echo.Context) error {
	var (
		users []models.User
		err   error
	)
	if query := c.QueryParam("q"); query != "" {
		users, err = h.userRepository.SearchUsers(c.Request().Context(), query)
	} else {
		users, err = h.userRepository.GetUsers(c.Request().Context())
	}
	if err != nil {
		return internalError(c, err)
	}

	details := make([]models.UserDetail, len(users))
	for i := range users {
		details[i] = users[i].ToDetail()
	}
	return c.JSON(http.StatusOK, details)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user := middleware.CurrentUser(c)
	user.Name = req.Name
	if err := h.userRepository.UpdateUser(c.Request().Context(), user); err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
