package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wikigraph/backend/internal/dedup"
	"github.com/wikigraph/backend/internal/fetch"
	"github.com/wikigraph/backend/pkg/logger"
	"github.com/wikigraph/backend/pkg/pagegraph"
	"github.com/wikigraph/backend/pkg/store"
)

// ProcessCategoryMessage expands one category: its pages become page
// jobs, its subcategories become further category jobs, and both get
// their edges in the graph. The dedup sets stop the recursion from
// revisiting categories reachable over multiple paths.
func ProcessCategoryMessage(
	ctx context.Context,
	wikiClient *fetch.Client,
	tracker Tracker,
	graphStore store.GraphStore,
	pub Publisher,
	msg string,
) error {
	data := new(CategoryJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed category job: %w", err)
	}

	first, err := tracker.MarkOnce(ctx, dedup.SetIndexedCategories, data.Category)
	if err != nil {
		return err
	}
	if !first {
		logger.Debug("[Queue] Category already indexed, skipping",
			"category", data.Category, "correlation_id", data.CorrelationID)
		return nil
	}

	if err := expandCategory(ctx, wikiClient, tracker, graphStore, pub, data); err != nil {
		// Release the claim on any failure after it was taken, or the
		// redelivery would skip the category as already indexed and the
		// unprocessed members would be lost.
		if clearErr := tracker.Clear(ctx, dedup.SetIndexedCategories, data.Category); clearErr != nil {
			logger.Warn("[Queue] Failed to release category claim",
				"category", data.Category, "err", clearErr)
		}
		return err
	}
	return nil
}

func expandCategory(
	ctx context.Context,
	wikiClient *fetch.Client,
	tracker Tracker,
	graphStore store.GraphStore,
	pub Publisher,
	data *CategoryJobMsg,
) error {
	members, err := wikiClient.CategoryMembers(ctx, data.Category)
	if err != nil {
		return err
	}
	members = fetch.FilterMembers(members, data.Exclude)

	if err := tracker.Mark(ctx, dedup.SetDownloadedCategories, data.Category); err != nil {
		logger.Warn("[Queue] Failed to mark category downloaded", "category", data.Category, "err", err)
	}

	categories := pagegraph.NewCategoryWriter(graphStore)
	pages, subcategories := 0, 0
	for _, member := range members {
		switch member.Namespace {
		case fetch.NamespacePage:
			job := PageJobMsg{
				Title:         member.Title,
				Category:      data.Category,
				Exclude:       data.Exclude,
				CorrelationID: data.CorrelationID,
			}
			body, err := json.Marshal(job)
			if err != nil {
				return err
			}
			if err := pub.Publish(PageQueue, body); err != nil {
				return fmt.Errorf("failed to enqueue page %q: %w", member.Title, err)
			}
			pages++

		case fetch.NamespaceCategory:
			subcategory := fetch.CategoryName(member.Title)
			if err := categories.LinkSubcategory(ctx, data.Category, subcategory); err != nil {
				return err
			}
			if data.Depth <= 0 {
				// Depth exhausted: the edge exists, but the
				// subcategory's own members stay unindexed.
				continue
			}
			job := CategoryJobMsg{
				Category:      subcategory,
				Depth:         data.Depth - 1,
				Exclude:       data.Exclude,
				CorrelationID: data.CorrelationID,
			}
			body, err := json.Marshal(job)
			if err != nil {
				return err
			}
			if err := pub.Publish(CategoryQueue, body); err != nil {
				return fmt.Errorf("failed to enqueue category %q: %w", subcategory, err)
			}
			subcategories++
		}
	}

	logger.Info("[Queue] Category expanded",
		"category", data.Category,
		"pages", pages,
		"subcategories", subcategories,
		"correlation_id", data.CorrelationID)
	return nil
}
