package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/wikigraph/backend/internal/queue"
	"github.com/wikigraph/backend/internal/server/middleware"
	"github.com/wikigraph/backend/pkg/logger"
)

type indexResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// IndexCategoryHandler queues a category for recursive indexing. The
// worker expands it into page jobs and subcategory jobs.
func IndexCategoryHandler(c echo.Context) error {
	type indexCategoryBody struct {
		Category string   `json:"category" validate:"required"`
		Depth    int      `json:"depth"`
		Exclude  []string `json:"exclude"`
	}

	data := new(indexCategoryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, indexResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, indexResponse{
			Message: "Invalid request body",
		})
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, indexResponse{
			Message: "Internal server error",
		})
	}

	depth := data.Depth
	if depth <= 0 {
		depth = queue.DefaultCategoryDepth
	}

	job := queue.CategoryJobMsg{
		Category:      data.Category,
		Depth:         depth,
		Exclude:       data.Exclude,
		CorrelationID: correlationID,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, indexResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishFIFO(ch, queue.CategoryQueue, body); err != nil {
		logger.Error("Failed to publish to category_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, indexResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, indexResponse{
		Message:       "Category queued for indexing",
		CorrelationID: correlationID,
	})
}

// IndexPageHandler queues a single page for indexing, optionally linked
// to a category.
func IndexPageHandler(c echo.Context) error {
	type indexPageBody struct {
		Title    string `json:"title" validate:"required"`
		Category string `json:"category"`
	}

	data := new(indexPageBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, indexResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, indexResponse{
			Message: "Invalid request body",
		})
	}

	correlationID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, indexResponse{
			Message: "Internal server error",
		})
	}

	job := queue.PageJobMsg{
		Title:         data.Title,
		Category:      data.Category,
		CorrelationID: correlationID,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, indexResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishFIFO(ch, queue.PageQueue, body); err != nil {
		logger.Error("Failed to publish to page_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, indexResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, indexResponse{
		Message:       "Page queued for indexing",
		CorrelationID: correlationID,
	})
}
