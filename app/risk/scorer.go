// Package risk estimates the likelihood that an article is misinformation.
// The score is an explainable multi-signal heuristic, not a trained model.
package risk

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fmaia/digesto/app/sentiment"
)

// DefaultKeywords are suspicious phrases commonly seen in fake news chains.
// Stored folded (lowercase, no diacritics); matching folds the input the
// same way.
var DefaultKeywords = []string{
	"cura milagrosa",
	"medicos nao querem que voce saiba",
	"segredo revelado",
	"ganhe dinheiro rapido",
	"compartilhe antes que apaguem",
	"a midia esta escondendo",
	"descoberta revolucionaria",
	"conspiracao",
	"100% comprovado",
	"eles nao querem que voce saiba",
	"miracle cure",
	"doctors don't want you to know",
	"share before they delete",
	"the media is hiding",
	"100% proven",
	"get rich quick",
}

// clickbaitPatterns match folded titles, so accented and uppercase variants
// are covered by the folding step rather than the patterns themselves.
var clickbaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`voce nao vai acreditar`),
	regexp.MustCompile(`you won't believe`),
	regexp.MustCompile(`incrivel|incredible`),
	regexp.MustCompile(`chocante|chocad[oa]s?|shocking|shocked`),
	regexp.MustCompile(`surpreendente|astonishing`),
	regexp.MustCompile(`impressionante`),
	regexp.MustCompile(`nunca imaginaria`),
	regexp.MustCompile(`assustador|terrifying`),
	regexp.MustCompile(`o que aconteceu depois|what happened next`),
	regexp.MustCompile(`\d+ (coisas|fatos|razoes|things|facts|reasons)`),
	regexp.MustCompile(`segredo|secret`),
	regexp.MustCompile(`revelad[oa]|revealed`),
	regexp.MustCompile(`medicos odeiam|doctors hate|milagros[oa]`),
}

const (
	keywordWeight   = 2.0
	clickbaitWeight = 2.0
	extremityBonus  = 2.0

	// normalizationCeiling is the fixed divisor mapping the raw weighted sum
	// to a probability. It is intentionally independent of the keyword list
	// length: extra configured keywords raise the raw score but the ceiling
	// stays at 20, so heavily flagged text saturates at 1.0. Persisted
	// scores depend on this value, do not change it without a migration.
	normalizationCeiling = 20.0

	// extremityThreshold flags emotionally extreme text in either direction.
	extremityThreshold = 0.8
)

// Signals is the per-call breakdown of the scorer. Ephemeral, never
// persisted; useful for debug logging and tests.
type Signals struct {
	KeywordMatches  int
	MatchedKeywords []string
	Exclamation     float64
	AllCaps         float64
	Clickbait       int
	Extreme         bool
	Raw             float64
}

type Scorer struct {
	keywords []string
}

// NewScorer builds a scorer over the given suspicious phrases. A nil or
// empty list falls back to DefaultKeywords.
func NewScorer(keywords []string) *Scorer {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		folded = append(folded, fold(k))
	}
	return &Scorer{keywords: folded}
}

// Score returns the misinformation probability for an article in [0, 1].
// Pure and deterministic: the same (title, body) always yields the same
// score.
func (s *Scorer) Score(title, body string) float64 {
	score, _ := s.Evaluate(title, body)
	return score
}

// Evaluate returns the probability plus the per-signal breakdown.
func (s *Scorer) Evaluate(title, body string) (float64, Signals) {
	combined := fold(title + " " + body)
	words := strings.Fields(combined)

	sig := Signals{}

	for _, keyword := range s.keywords {
		if strings.Contains(combined, keyword) {
			sig.KeywordMatches++
			sig.MatchedKeywords = append(sig.MatchedKeywords, keyword)
		}
	}

	sig.Exclamation = exclamationDensity(combined, len(words))
	sig.AllCaps = allCapsDensity(title + " " + body)

	foldedTitle := fold(title)
	for _, pattern := range clickbaitPatterns {
		if pattern.MatchString(foldedTitle) {
			sig.Clickbait++
		}
	}

	sig.Extreme = isExtreme(title + " " + body)

	sig.Raw = float64(sig.KeywordMatches)*keywordWeight +
		sig.Exclamation +
		sig.AllCaps +
		float64(sig.Clickbait)*clickbaitWeight
	if sig.Extreme {
		sig.Raw += extremityBonus
	}

	probability := sig.Raw / normalizationCeiling
	if probability > 1 {
		probability = 1
	}

	if sig.Raw > 0 {
		slog.Debug("Risk signals fired",
			"probability", probability,
			"raw", sig.Raw,
			"keywords", sig.KeywordMatches,
			"clickbait", sig.Clickbait,
			"extreme_sentiment", sig.Extreme)
	}

	return probability, sig
}

// Accepted applies the acceptance policy: risk must stay strictly below the
// configured confidence margin. With the default MinConfidence of 0.7,
// articles scoring 0.3 or higher are rejected.
func Accepted(score, minConfidence float64) bool {
	return score < 1-minConfidence
}

// exclamationDensity ignores up to three exclamation marks; beyond that the
// count is normalized by word count and scaled.
func exclamationDensity(text string, wordCount int) float64 {
	count := strings.Count(text, "!")
	if count <= 3 || wordCount == 0 {
		return 0
	}
	return float64(count) / float64(wordCount) * 10
}

// allCapsDensity measures the share of SHOUTED words. Runs on the raw text
// since folding would destroy the casing it inspects.
func allCapsDensity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	capsCount := 0
	for _, word := range words {
		if utf8.RuneCountInString(word) > 3 && isAllUpper(word) {
			capsCount++
		}
	}
	if capsCount == 0 {
		return 0
	}
	return float64(capsCount) / float64(len(words)) * 10
}

// isAllUpper reports whether a word contains at least one letter and every
// letter in it is uppercase. Digits and punctuation are ignored, so
// "CHOCADOS!!!" still counts.
func isAllUpper(word string) bool {
	hasLetter := false
	for _, r := range word {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return hasLetter
}

func isExtreme(text string) bool {
	polarity := sentiment.Polarity(text)
	return polarity > extremityThreshold || polarity < -extremityThreshold
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
