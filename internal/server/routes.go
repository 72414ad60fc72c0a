package server

import (
	"github.com/wikigraph/backend/internal/server/middleware"
	"github.com/wikigraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Indexing routes
	apiRoutes.POST("/index/category", routes.IndexCategoryHandler)
	apiRoutes.POST("/index/page", routes.IndexPageHandler)

	// Retrieval routes
	apiRoutes.POST("/ask", routes.AskHandler)

	// Archive routes
	apiRoutes.GET("/archive/pages", routes.GetArchivedPagesHandler)
}
