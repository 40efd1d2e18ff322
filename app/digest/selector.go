// Package digest turns the accepted-article pool into per-recipient
// selections and renders them as short delivery-ready messages.
package digest

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/fmaia/digesto/app/feed"
	"github.com/fmaia/digesto/app/recipient"
)

// CategoryFetcher obtains the accepted articles for one category.
// Satisfied by feed.Fetcher.
type CategoryFetcher interface {
	FetchCategory(ctx context.Context, category string, perSourceLimit int) []feed.Article
}

// Pool holds one delivery cycle's accepted articles per category, so a
// cycle fetches each category once no matter how many recipients share it.
type Pool map[string][]feed.Article

type Engine struct {
	fetcher        CategoryFetcher
	perSourceLimit int
}

func NewEngine(fetcher CategoryFetcher, perSourceLimit int) *Engine {
	return &Engine{fetcher: fetcher, perSourceLimit: perSourceLimit}
}

// BuildPool fetches each category once. Categories already present in the
// pool are left untouched, so a caller can grow one pool across recipients.
func (e *Engine) BuildPool(ctx context.Context, pool Pool, categories []string) {
	for _, category := range categories {
		if _, ok := pool[category]; ok {
			continue
		}
		pool[category] = e.fetcher.FetchCategory(ctx, category, e.perSourceLimit)
	}
}

// SelectForRecipient fetches the recipient's categories and applies the
// selection rules. Used for on-demand sends; delivery cycles share a pool
// via BuildPool + SelectFromPool instead.
func (e *Engine) SelectForRecipient(ctx context.Context, pref *recipient.Preference) []feed.Article {
	pool := make(Pool)
	e.BuildPool(ctx, pool, pref.Categories)
	return SelectFromPool(pref, pool)
}

// SelectFromPool is the pure selection step:
//  1. union of the recipient's categories (an article listed under two
//     different URLs is intentionally kept twice; URL-level duplicates are
//     already suppressed by the seen-cache),
//  2. drop articles matching an excluded topic,
//  3. newest first, stable within equal timestamps,
//  4. cap at the recipient's max items.
//
// An empty result is a normal outcome, not an error.
func SelectFromPool(pref *recipient.Preference, pool Pool) []feed.Article {
	var selected []feed.Article
	excluded := 0

	for _, category := range pref.Categories {
		for _, article := range pool[category] {
			if matchesExcludedTopic(article, pref.ExcludedTopics) {
				excluded++
				continue
			}
			selected = append(selected, article)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].PublishedAt.After(selected[j].PublishedAt)
	})

	if len(selected) > pref.MaxItems && pref.MaxItems > 0 {
		selected = selected[:pref.MaxItems]
	}

	slog.Debug("Selection complete",
		"recipient", pref.ID,
		"selected", len(selected),
		"excluded_by_topic", excluded)

	return selected
}

func matchesExcludedTopic(article feed.Article, topics []string) bool {
	if len(topics) == 0 {
		return false
	}

	title := strings.ToLower(article.Title)
	body := strings.ToLower(article.Body)
	for _, topic := range topics {
		topic = strings.ToLower(topic)
		if strings.Contains(title, topic) || strings.Contains(body, topic) {
			return true
		}
	}
	return false
}
