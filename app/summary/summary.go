// Package summary derives short extractive summaries from article bodies.
// Sentences are ranked by stopword-filtered word frequency and the best ones
// are returned in their original order.
package summary

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultSentences = 2

// stopwords are folded (lowercase, no diacritics). Portuguese plus a handful
// of English function words for mixed-language feeds.
var stopwords = map[string]bool{
	"a": true, "o": true, "e": true, "de": true, "do": true, "da": true,
	"dos": true, "das": true, "em": true, "no": true, "na": true, "nos": true,
	"nas": true, "um": true, "uma": true, "para": true, "por": true,
	"com": true, "que": true, "se": true, "ao": true, "aos": true, "os": true,
	"as": true, "mais": true, "mas": true, "como": true, "foi": true,
	"ser": true, "sao": true, "tem": true, "ja": true, "nao": true,
	"sua": true, "seu": true, "ou": true, "entre": true, "sobre": true,
	"the": true, "of": true, "and": true, "to": true, "in": true, "is": true,
	"was": true, "for": true, "on": true, "with": true, "that": true,
	"by": true, "at": true, "an": true, "be": true, "this": true, "are": true,
}

type scored struct {
	index int
	text  string
	score float64
}

// Run extracts up to maxSentences sentences from text. An empty or
// whitespace-only body yields an empty summary.
func Run(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultSentences
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := wordFrequencies(sentences)

	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		ranked = append(ranked, scored{index: i, text: s, score: sentenceScore(s, freq)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	ranked = ranked[:maxSentences]

	// Restore document order so the summary reads naturally.
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].index < ranked[j].index
	})

	parts := make([]string, 0, len(ranked))
	for _, s := range ranked {
		parts = append(parts, s.text)
	}
	return strings.Join(parts, " ")
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for _, r := range strings.TrimSpace(text) {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()

	return sentences
}

func wordFrequencies(sentences []string) map[string]int {
	freq := make(map[string]int)
	for _, s := range sentences {
		for _, w := range tokenize(s) {
			if !stopwords[w] {
				freq[w]++
			}
		}
	}
	return freq
}

func sentenceScore(sentence string, freq map[string]int) float64 {
	words := tokenize(sentence)
	if len(words) == 0 {
		return 0
	}

	total := 0
	for _, w := range words {
		total += freq[w]
	}
	return float64(total) / float64(len(words))
}

func tokenize(text string) []string {
	var words []string
	for _, w := range strings.Fields(fold(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
