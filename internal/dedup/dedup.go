// Package dedup tracks which pages and categories have already been
// fetched or indexed, using Redis sets shared by all workers. Crossing
// a category graph revisits the same members constantly; these sets
// make every visit after the first a no-op.
package dedup

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wikigraph/backend/internal/util"
)

const (
	SetDownloadedPages      = "downloaded_pages"
	SetDownloadedCategories = "downloaded_categories"
	SetIndexedPages         = "indexed_pages"
	SetIndexedCategories    = "indexed_categories"
)

// Tracker wraps the Redis sets. All methods are safe for concurrent
// use across processes.
type Tracker struct {
	client *redis.Client
}

func New(client *redis.Client) *Tracker {
	return &Tracker{client: client}
}

// NewClientFromEnv connects using REDIS_URL.
func NewClientFromEnv() (*redis.Client, error) {
	opts, err := redis.ParseURL(util.GetEnv("REDIS_URL"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Seen reports whether title is already in the set.
func (t *Tracker) Seen(ctx context.Context, set string, title string) (bool, error) {
	seen, err := t.client.SIsMember(ctx, set, title).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s for %q: %w", set, title, err)
	}
	return seen, nil
}

// Mark records title in the set. Marking twice is harmless.
func (t *Tracker) Mark(ctx context.Context, set string, title string) error {
	if err := t.client.SAdd(ctx, set, title).Err(); err != nil {
		return fmt.Errorf("failed to mark %q in %s: %w", title, set, err)
	}
	return nil
}

// MarkOnce records title and reports whether this call was the first
// to do so. Workers use it to claim a page before processing it.
func (t *Tracker) MarkOnce(ctx context.Context, set string, title string) (bool, error) {
	added, err := t.client.SAdd(ctx, set, title).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %q in %s: %w", title, set, err)
	}
	return added == 1, nil
}

// Clear removes title from the set so it can be processed again.
func (t *Tracker) Clear(ctx context.Context, set string, title string) error {
	if err := t.client.SRem(ctx, set, title).Err(); err != nil {
		return fmt.Errorf("failed to clear %q from %s: %w", title, set, err)
	}
	return nil
}
