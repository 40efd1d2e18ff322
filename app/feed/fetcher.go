package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/fmaia/digesto/app/risk"
	"github.com/fmaia/digesto/app/sentiment"
	"github.com/fmaia/digesto/app/sources"
	"github.com/fmaia/digesto/app/summary"
)

// FetcherOptions tune the fetch pipeline. Zero values fall back to the
// defaults below.
type FetcherOptions struct {
	UserAgent      string
	PerSourceLimit int
	Timeout        time.Duration
	MinConfidence  float64
	Workers        int
	HostRate       float64 // requests per second against a single host
}

const (
	defaultPerSourceLimit = 10
	defaultTimeout        = 30 * time.Second
	defaultMinConfidence  = 0.7
	defaultWorkers        = 4
	defaultHostRate       = 1.0
)

// Fetcher pulls candidate articles per category: feed retrieval, seen-cache
// dedup, page extraction, sentiment and summary enrichment, and the risk
// gate. It owns the seen-cache; everything downstream works on the returned
// immutable articles.
type Fetcher struct {
	registry   *sources.Registry
	cache      *SeenCache
	scorer     *risk.Scorer
	extractor  *ContentExtractor
	httpClient *http.Client
	feedParser *gofeed.Parser
	opts       FetcherOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(registry *sources.Registry, cache *SeenCache, scorer *risk.Scorer,
	extractor *ContentExtractor, httpClient *http.Client, opts FetcherOptions) *Fetcher {
	if opts.PerSourceLimit <= 0 {
		opts.PerSourceLimit = defaultPerSourceLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.HostRate <= 0 {
		opts.HostRate = defaultHostRate
	}

	return &Fetcher{
		registry:   registry,
		cache:      cache,
		scorer:     scorer,
		extractor:  extractor,
		httpClient: httpClient,
		feedParser: gofeed.NewParser(),
		opts:       opts,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Cache exposes the fetcher-owned seen-cache for stats reporting.
func (f *Fetcher) Cache() *SeenCache {
	return f.cache
}

// FetchCategory returns the accepted articles for one category. Sources are
// visited by a bounded worker pool, each request rate-limited per host; a
// failing source is skipped and never aborts the category. The merged result
// follows configuration order per source, feed order within a source.
func (f *Fetcher) FetchCategory(ctx context.Context, category string, perSourceLimit int) []Article {
	if perSourceLimit <= 0 {
		perSourceLimit = f.opts.PerSourceLimit
	}

	urls, err := f.registry.URLs(category)
	if err != nil {
		slog.Warn("Unknown category requested", "category", category, "error", err)
		return nil
	}

	results := make([][]Article, len(urls))
	jobs := make(chan int)

	workers := f.opts.Workers
	if workers > len(urls) {
		workers = len(urls)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = f.fetchSource(ctx, category, urls[idx], perSourceLimit)
			}
		}()
	}

	for idx := range urls {
		select {
		case jobs <- idx:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	var articles []Article
	for _, batch := range results {
		articles = append(articles, batch...)
	}

	slog.Info("Category fetched",
		"category", category,
		"sources", len(urls),
		"accepted", len(articles))

	return articles
}

// fetchSource processes a single feed URL. All failures are logged and
// reduce to an empty batch.
func (f *Fetcher) fetchSource(ctx context.Context, category, sourceURL string, limit int) []Article {
	slog.Debug("Fetching source", "category", category, "url", sourceURL)

	data, err := f.download(ctx, sourceURL)
	if err != nil {
		slog.Warn("Source unavailable, skipping", "url", sourceURL, "error", err)
		return nil
	}

	parsed, err := f.feedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Source feed unparseable, skipping", "url", sourceURL, "error", err)
		return nil
	}

	var articles []Article
	inspected := 0
	for _, entry := range parsed.Items {
		if inspected >= limit {
			break
		}
		inspected++

		if entry.Link == "" {
			continue
		}
		if f.cache.Has(entry.Link) {
			slog.Debug("Skipping already seen article", "url", entry.Link)
			continue
		}

		article, err := f.processEntry(ctx, category, entry)
		if err != nil {
			slog.Warn("Article extraction failed, skipping", "url", entry.Link, "error", err)
			continue
		}
		if article != nil {
			articles = append(articles, *article)
		}
	}

	return articles
}

// processEntry turns one feed entry into an accepted article, or nil when
// the risk gate rejects it. The URL is marked seen before extraction, so a
// dead or low-quality link is never retried.
func (f *Fetcher) processEntry(ctx context.Context, category string, entry *gofeed.Item) (*Article, error) {
	f.cache.Mark(entry.Link)

	data, err := f.download(ctx, entry.Link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article page: %w", err)
	}

	extracted, err := f.extractor.Run(data, entry.Link)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	title := extracted.Title
	if title == "" {
		title = entry.Title
	}

	publishedAt := time.Now().UTC()
	if extracted.PublishedAt != nil {
		publishedAt = *extracted.PublishedAt
	} else if entry.PublishedParsed != nil {
		publishedAt = *entry.PublishedParsed
	}

	article := &Article{
		URL:         entry.Link,
		Title:       title,
		Body:        extracted.Text,
		Summary:     summary.Run(extracted.Text, summary.DefaultSentences),
		ImageURL:    extracted.ImageURL,
		PublishedAt: publishedAt,
		SourceID:    extracted.SiteName,
		Category:    category,
		Polarity:    sentiment.Polarity(extracted.Text),
		Tags:        entry.Categories,
	}
	article.RiskScore = f.scorer.Score(article.Title, article.Body)

	if !risk.Accepted(article.RiskScore, f.opts.MinConfidence) {
		slog.Warn("Potential misinformation rejected",
			"url", article.URL,
			"title", article.Title,
			"risk_score", article.RiskScore)
		return nil, nil
	}

	return article, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Politeness throttle: never hammer a single host, even with many
	// workers fetching in parallel.
	if err := f.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	host = strings.ToLower(host)

	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.opts.HostRate), 1)
		f.limiters[host] = limiter
	}
	return limiter
}
