package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/wikigraph/backend/internal/util"
	"github.com/wikigraph/backend/pkg/ai"
	gai "github.com/wikigraph/backend/pkg/ai/openai"
	"github.com/wikigraph/backend/pkg/store"
)

// App carries the shared clients a request handler needs.
type App struct {
	DBConn     *pgxpool.Pool
	Queue      *amqp091.Channel
	GraphStore store.GraphStore
	S3         *s3.Client
	AiClient   ai.GraphAIClient
	APIKey     string
}

// AppContext wraps the echo context with the application state.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware builds the App every handler reads from the
// context. The AI client is created per request so its metrics are
// scoped to that request.
func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	graphStore store.GraphStore,
	s3Client *s3.Client,
	apiKey string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			aiClient := gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
				ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
				EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
				EmbeddingDim:   int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),

				ChatURL:      util.GetEnv("AI_CHAT_URL"),
				ChatKey:      util.GetEnv("AI_CHAT_KEY"),
				EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
				EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
			})

			app := &App{
				DBConn:     db,
				Queue:      queue,
				GraphStore: graphStore,
				S3:         s3Client,
				AiClient:   aiClient,
				APIKey:     apiKey,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
