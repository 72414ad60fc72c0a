// Package queue carries indexing jobs over RabbitMQ. A category job
// fans out into page jobs and further category jobs; page jobs do the
// actual fetch-chunk-persist work. Failed jobs go through a delayed
// retry queue and end up in a DLQ after too many attempts.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/wikigraph/backend/internal/util"
	"github.com/wikigraph/backend/pkg/logger"
)

const (
	CategoryQueue = "category_queue"
	PageQueue     = "page_queue"

	// DefaultCategoryDepth bounds how far a category crawl recurses
	// into subcategories when the request does not say.
	DefaultCategoryDepth = 3

	maxRetries = 10
)

// Queues lists every work queue the worker consumes.
var Queues = []string{CategoryQueue, PageQueue}

// CategoryJobMsg asks a worker to index one category: link its graph
// node, enqueue its pages, and recurse into its subcategories. Depth is
// the number of subcategory levels still allowed below this category.
type CategoryJobMsg struct {
	Category      string   `json:"category"`
	Depth         int      `json:"depth"`
	Exclude       []string `json:"exclude,omitempty"`
	CorrelationID string   `json:"correlation_id"`
}

// PageJobMsg asks a worker to index one page.
type PageJobMsg struct {
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Exclude       []string `json:"exclude,omitempty"`
	CorrelationID string   `json:"correlation_id"`
}

// Tracker is the claim surface the job processors need from the dedup
// sets. *dedup.Tracker implements it.
type Tracker interface {
	Seen(ctx context.Context, set string, title string) (bool, error)
	Mark(ctx context.Context, set string, title string) error
	MarkOnce(ctx context.Context, set string, title string) (bool, error)
	Clear(ctx context.Context, set string, title string) error
}

// Publisher sends job payloads to a queue.
type Publisher interface {
	Publish(queueName string, data []byte) error
}

// ChannelPublisher publishes jobs over a RabbitMQ channel.
type ChannelPublisher struct {
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(queueName string, data []byte) error {
	return PublishFIFO(p.ch, queueName, data)
}

func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares every work queue together with its retry queue
// and DLQ. The retry queue dead-letters back into the work queue after
// a short TTL, which is what delays redelivery.
func SetupQueues(ch *amqp091.Channel) error {
	for _, name := range Queues {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(10000),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", retryName, err)
		}
	}

	return nil
}

// PublishFIFO sends a persistent message to a queue.
func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		publishing,
	)
}

// HandleProcessingError routes a failed delivery: back through the
// retry queue while attempts remain, to the DLQ once they run out.
func HandleProcessingError(ch *amqp091.Channel, msg amqp091.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	if retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp091.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
