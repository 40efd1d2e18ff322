package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Extracted is the readable part of a downloaded article page.
type Extracted struct {
	Title       string
	Text        string
	Excerpt     string
	ImageURL    string
	SiteName    string
	PublishedAt *time.Time
}

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the readable article from raw HTML. pageURL resolves
// relative links and provides the fallback source label.
func (e *ContentExtractor) Run(data []byte, pageURL string) (*Extracted, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	extracted := &Extracted{
		Title:       article.Title,
		Text:        text,
		Excerpt:     article.Excerpt,
		ImageURL:    article.Image,
		SiteName:    article.SiteName,
		PublishedAt: article.PublishedTime,
	}
	if extracted.SiteName == "" {
		extracted.SiteName = parsed.Host
	}

	slog.Debug("Content extracted successfully",
		"title", extracted.Title,
		"content_length", len(extracted.Text))

	return extracted, nil
}
