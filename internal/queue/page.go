package queue

import (
	"context"
	"encoding/json"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wikigraph/backend/internal/archive"
	"github.com/wikigraph/backend/internal/dedup"
	"github.com/wikigraph/backend/internal/fetch"
	"github.com/wikigraph/backend/internal/util"
	"github.com/wikigraph/backend/pkg/content"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/pagegraph"
	"github.com/wikigraph/backend/pkg/store"
	"github.com/wikigraph/backend/pkg/wiki"
)

// ProcessPageMessage indexes one page end to end: fetch the HTML,
// archive the raw capture, chunk it into the section tree, persist the
// chunk texts, write the graph, and link the page to its category.
// Every step is idempotent, so a retry after a mid-way failure simply
// runs the whole page again.
func ProcessPageMessage(
	ctx context.Context,
	wikiClient *fetch.Client,
	s3Client *awss3.Client,
	tracker Tracker,
	contents content.Store,
	graphStore store.GraphStore,
	msg string,
) error {
	data := new(PageJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed page job: %w", err)
	}

	first, err := tracker.MarkOnce(ctx, dedup.SetIndexedPages, data.Title)
	if err != nil {
		return err
	}
	if !first {
		logger.Debug("[Queue] Page already indexed, linking only",
			"title", data.Title, "correlation_id", data.CorrelationID)
		// The page came in again through another category; only the
		// category edge is new.
		return pagegraph.NewCategoryWriter(graphStore).LinkPage(ctx, data.Category, data.Title)
	}

	if err := indexPage(ctx, wikiClient, s3Client, tracker, contents, graphStore, data); err != nil {
		if clearErr := tracker.Clear(ctx, dedup.SetIndexedPages, data.Title); clearErr != nil {
			logger.Warn("[Queue] Failed to release page claim", "title", data.Title, "err", clearErr)
		}
		return err
	}

	logger.Info("[Queue] Page indexed", "title", data.Title, "correlation_id", data.CorrelationID)
	return nil
}

func indexPage(
	ctx context.Context,
	wikiClient *fetch.Client,
	s3Client *awss3.Client,
	tracker Tracker,
	contents content.Store,
	graphStore store.GraphStore,
	data *PageJobMsg,
) error {
	markup, err := loadOrFetchPage(ctx, wikiClient, s3Client, tracker, data.Title)
	if err != nil {
		return err
	}

	blocks := wiki.ExtractBlocks(markup)
	page, docs := wiki.Build(data.Title, blocks)

	chunks := make([]content.Chunk, len(docs))
	for i, doc := range docs {
		chunks[i] = content.Chunk{ID: doc.ID, Text: doc.Text, Meta: doc.Meta}
	}
	if err := contents.SaveChunks(ctx, chunks); err != nil {
		return err
	}

	writer := pagegraph.NewWriter(graphStore)
	if err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return writer.WritePage(ctx, page)
	}); err != nil {
		return err
	}

	if data.Category == "" {
		return nil
	}
	return pagegraph.NewCategoryWriter(graphStore).LinkPage(ctx, data.Category, data.Title)
}

// loadOrFetchPage prefers the archived copy of a previously downloaded
// page over a fresh API call. Archive failures are never fatal; the wiki
// API is the source of truth.
func loadOrFetchPage(
	ctx context.Context,
	wikiClient *fetch.Client,
	s3Client *awss3.Client,
	tracker Tracker,
	title string,
) (string, error) {
	if s3Client != nil {
		downloaded, err := tracker.Seen(ctx, dedup.SetDownloadedPages, title)
		if err != nil {
			logger.Warn("[Queue] Failed to check download set", "title", title, "err", err)
		} else if downloaded {
			markup, err := archive.LoadPage(ctx, s3Client, title)
			if err == nil {
				return markup, nil
			}
			logger.Warn("[Queue] Archived page unreadable, refetching", "title", title, "err", err)
		}
	}

	markup, err := wikiClient.PageHTML(ctx, title)
	if err != nil {
		return "", err
	}

	if s3Client != nil {
		if err := archive.SavePage(ctx, s3Client, title, markup); err != nil {
			logger.Warn("[Queue] Failed to archive page", "title", title, "err", err)
		} else if err := tracker.Mark(ctx, dedup.SetDownloadedPages, title); err != nil {
			logger.Warn("[Queue] Failed to mark page downloaded", "title", title, "err", err)
		}
	}

	return markup, nil
}
