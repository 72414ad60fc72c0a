package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wikigraph/backend/internal/archive"
	"github.com/wikigraph/backend/internal/dedup"
	"github.com/wikigraph/backend/internal/fetch"
	"github.com/wikigraph/backend/internal/queue"
	"github.com/wikigraph/backend/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	gai "github.com/wikigraph/backend/pkg/ai/openai"
	cpgx "github.com/wikigraph/backend/pkg/content/pgx"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/logger/console"
	"github.com/wikigraph/backend/pkg/store/neo4j"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/sync/errgroup"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client for the raw page archive
	s3Client := archive.NewS3Client(ctx)

	// GraphAiClient
	aiClient := gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
		ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
		EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),
		EmbeddingDim:   int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),

		ChatURL:      util.GetEnv("AI_CHAT_URL"),
		ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
		EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
	})

	// Init pgx client for chunk texts and embeddings
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()
	pgConn.Config().AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	contents := cpgx.NewContentStorage(pgConn, aiClient)

	// Init neo4j for the page hierarchy graph
	graphStore, err := neo4j.NewStorage(ctx, neo4j.NewStorageParams{
		URI:      util.GetEnv("NEO4J_URI"),
		Username: util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnv("NEO4J_DATABASE"),
	})
	if err != nil {
		logger.Fatal("Unable to connect to graph store", "err", err)
	}
	defer graphStore.Close(context.Background())

	// Init redis dedup sets shared across workers
	redisClient, err := dedup.NewClientFromEnv()
	if err != nil {
		logger.Fatal("Unable to connect to redis", "err", err)
	}
	defer redisClient.Close()
	tracker := dedup.New(redisClient)

	// Wiki API client
	wikiClient := fetch.NewClient(util.GetEnv("WIKI_API_URL"), util.GetEnv("WIKI_USER_AGENT"))

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	pub := queue.NewPublisher(ch)

	logger.Info("Listening for messages")

	// A single consumer channel with prefetch=1 ensures only ONE message
	// is in flight at a time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, queueName := range queue.Queues {
		group.Go(func() error {
			consumerTag := fmt.Sprintf("%s_consumer", queueName)
			msgs, err := consumerCh.Consume(
				queueName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				return fmt.Errorf("failed to start consuming %q: %w", queueName, err)
			}

			for {
				select {
				case <-groupCtx.Done():
					logger.Info("Stopping consumer", "queue", queueName)
					return nil
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", queueName)
						return nil
					}
					messageChan <- queuedMessage{msg: msg, queueName: queueName}
				}
			}
		})
	}

	go func() {
		for {
			select {
			case <-groupCtx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.CategoryQueue:
					processingErr = queue.ProcessCategoryMessage(groupCtx, wikiClient, tracker, graphStore, pub, string(qm.msg.Body))
				case queue.PageQueue:
					processingErr = queue.ProcessPageMessage(groupCtx, wikiClient, s3Client, tracker, contents, graphStore, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					err = qm.msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", formatDuration(aiDuration),
				)

				logger.Info(
					"Processing time",
					"duration", formatDuration(time.Since(startTime)),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	if err := group.Wait(); err != nil {
		logger.Fatal("Consumer failed", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
