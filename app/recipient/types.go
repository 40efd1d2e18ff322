// Package recipient models who receives digests and how. The original
// deployment kept these as loose per-user maps; here they are typed records
// validated at write time, read-only for the curation pipeline.
package recipient

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fmaia/digesto/app/sources"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
)

// ParseFrequency validates a frequency value.
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(raw))) {
	case FrequencyDaily:
		return FrequencyDaily, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyBiweekly:
		return FrequencyBiweekly, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", raw)
	}
}

// DueOn reports whether a delivery is scheduled for the given weekday.
// Weekly recipients get Monday, biweekly Monday and Thursday.
func (f Frequency) DueOn(day time.Weekday) bool {
	switch f {
	case FrequencyWeekly:
		return day == time.Monday
	case FrequencyBiweekly:
		return day == time.Monday || day == time.Thursday
	default:
		return true
	}
}

// Stats tracks delivery history for one recipient.
type Stats struct {
	MessagesSent int
	ArticlesSent int
	LastSentAt   *time.Time
}

// CategoryChecker answers whether a category name is configured. Satisfied
// by sources.Registry.
type CategoryChecker interface {
	Has(category string) bool
}

// Preference is one recipient's digest configuration.
type Preference struct {
	ID             string
	Name           string
	Phone          string
	Active         bool
	Categories     []string
	ExcludedTopics []string
	MaxItems       int
	Frequency      Frequency
	Stats          Stats
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Normalize enforces the preference invariants in place: unknown categories
// are dropped with a warning, duplicates collapse to the first occurrence,
// and an empty result falls back to the default category; excluded topics
// are folded to lowercase, and missing numeric or enum values get their
// defaults. After Normalize the preference always resolves to at least one
// known category, each listed once.
func (p *Preference) Normalize(known CategoryChecker, defaultMaxItems int) {
	var valid []string
	seen := make(map[string]struct{}, len(p.Categories))
	for _, category := range p.Categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		if !known.Has(category) {
			slog.Warn("Dropping unknown category from preference",
				"recipient", p.ID, "category", category)
			continue
		}
		seen[category] = struct{}{}
		valid = append(valid, category)
	}
	if len(valid) == 0 {
		valid = []string{sources.DefaultCategory}
	}
	p.Categories = valid

	var topics []string
	for _, topic := range p.ExcludedTopics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	p.ExcludedTopics = topics

	if p.MaxItems <= 0 {
		p.MaxItems = defaultMaxItems
	}

	if _, err := ParseFrequency(string(p.Frequency)); err != nil {
		p.Frequency = FrequencyDaily
	} else {
		p.Frequency = Frequency(strings.ToLower(string(p.Frequency)))
	}
}
