package handlers

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anonto42/blango/backend/internal/serializers"
	"github.com/labstack/echo/v4"
)

// RouteUserDetail names the user detail route that post authors link to
const RouteUserDetail = "api_user_detail"

// requestLinker builds absolute URLs from the current request's scheme and host
type requestLinker struct {
	c echo.Context
}

func (l requestLinker) UserDetailURL(email string) string {
	path := l.c.Echo().Reverse(RouteUserDetail, url.PathEscape(email))
	return l.c.Scheme() + "://" + l.c.Request().Host + path
}

// pagination reads ?page and ?limit with the given default limit, capped at 50
func pagination(c echo.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = defaultLimit
	}
	return page, limit
}

func pageMeta(page, limit int, total int64) echo.Map {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	}
}

// serializerError turns a validation failure into a 400 carrying the field
// map and anything else into a logged, generic 500
func serializerError(c echo.Context, err error) error {
	var verr *serializers.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Fields)
	}
	return internalError(c, err)
}

func internalError(c echo.Context, err error) error {
	c.Logger().Error(err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
	return uint(id), nil
}
