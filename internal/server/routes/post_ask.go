package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wikigraph/backend/internal/server/middleware"
	"github.com/wikigraph/backend/pkg/ai"
	cpgx "github.com/wikigraph/backend/pkg/content/pgx"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/retrieve"
)

// AskHandler answers a question from the indexed wiki content.
func AskHandler(c echo.Context) error {
	type askRequest struct {
		Question  string `json:"question" validate:"required"`
		Limit     int    `json:"limit"`
		MaxTokens int    `json:"max_tokens"`
	}

	type askResponse struct {
		Message string            `json:"message"`
		Answer  string            `json:"answer,omitempty"`
		Sources []retrieve.Source `json:"sources,omitempty"`
		Metrics *ai.ModelMetrics  `json:"metrics,omitempty"`
	}

	data := new(askRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, askResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, askResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	opts := []retrieve.Option{}
	if data.Limit > 0 {
		opts = append(opts, retrieve.WithSearchLimit(data.Limit))
	}
	if data.MaxTokens > 0 {
		opts = append(opts, retrieve.WithTokenLimit(data.MaxTokens))
	}

	contents := cpgx.NewContentStorage(app.DBConn, app.AiClient)
	retriever := retrieve.New(app.AiClient, app.GraphStore, contents, opts...)

	answer, err := retriever.Ask(ctx, data.Question)
	if err != nil {
		logger.Error("[Ask] Failed to answer question", "err", err)
		return c.JSON(http.StatusInternalServerError, askResponse{
			Message: "Internal server error",
		})
	}

	metrics := app.AiClient.GetMetrics()
	return c.JSON(http.StatusOK, askResponse{
		Message: "Question answered",
		Answer:  answer.Answer,
		Sources: answer.Sources,
		Metrics: &metrics,
	})
}
