package feed

import (
	"time"
)

// Article is one curated piece of content. Created by the fetcher at
// extraction time and immutable afterwards; it only lives for the duration
// of a delivery cycle (the seen-cache remembers its URL, nothing else is
// persisted).
type Article struct {
	URL         string // unique identity
	Title       string
	Body        string
	Summary     string // may be empty
	ImageURL    string // optional
	PublishedAt time.Time
	SourceID    string // site name or URL host
	Category    string // category the article was fetched under
	Polarity    float64
	Tags        []string
	RiskScore   float64
}
