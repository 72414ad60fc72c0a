package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wikigraph/backend/internal/archive"
	"github.com/wikigraph/backend/internal/server/middleware"
	"github.com/wikigraph/backend/pkg/logger"
)

type archivedPagesResponse struct {
	Message string   `json:"message"`
	Keys    []string `json:"keys"`
}

// GetArchivedPagesHandler lists the object keys of every archived page,
// so an operator can see what raw HTML a reindex would reuse.
func GetArchivedPagesHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if app.S3 == nil {
		return c.JSON(http.StatusServiceUnavailable, archivedPagesResponse{
			Message: "Archive is not configured",
		})
	}

	keys, err := archive.ListPages(c.Request().Context(), app.S3)
	if err != nil {
		logger.Error("Failed to list archived pages", "err", err)
		return c.JSON(http.StatusInternalServerError, archivedPagesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, archivedPagesResponse{
		Message: "Archived pages listed",
		Keys:    keys,
	})
}
