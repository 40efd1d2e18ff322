package sentiment

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// lexicon maps folded words to a valence in [-1, 1]. Bilingual (Portuguese
// and English) because the configured feeds mix both.
var lexicon = map[string]float64{
	// strongly positive
	"milagrosa": 1.0, "milagroso": 1.0, "incrivel": 0.9, "maravilhoso": 1.0,
	"maravilhosa": 1.0, "perfeito": 0.9, "perfeita": 0.9, "excelente": 0.9,
	"fantastico": 0.9, "fantastica": 0.9, "espetacular": 0.9, "sensacional": 0.9,
	"revolucionario": 0.8, "revolucionaria": 0.8, "surpreendente": 0.7,
	"miraculous": 1.0, "amazing": 0.9, "incredible": 0.9, "wonderful": 1.0,
	"perfect": 0.9, "excellent": 0.9, "fantastic": 0.9, "spectacular": 0.9,
	"revolutionary": 0.8, "astonishing": 0.7,

	// mildly positive
	"bom": 0.4, "boa": 0.4, "otimo": 0.6, "otima": 0.6, "positivo": 0.4,
	"promissor": 0.5, "promissora": 0.5, "melhora": 0.4, "avanco": 0.4,
	"sucesso": 0.5, "beneficio": 0.4, "seguro": 0.3, "segura": 0.3,
	"good": 0.4, "great": 0.6, "positive": 0.4, "promising": 0.5,
	"improvement": 0.4, "success": 0.5, "benefit": 0.4, "safe": 0.3,

	// mildly negative
	"ruim": -0.4, "negativo": -0.4, "problema": -0.3, "queda": -0.3,
	"risco": -0.3, "crise": -0.5, "falha": -0.4, "prejuizo": -0.4,
	"preocupante": -0.5, "perigo": -0.5, "perigoso": -0.5, "perigosa": -0.5,
	"bad": -0.4, "negative": -0.4, "problem": -0.3, "risk": -0.3,
	"crisis": -0.5, "failure": -0.4, "concerning": -0.5, "dangerous": -0.5,

	// strongly negative
	"pessimo": -0.9, "pessima": -0.9, "horrivel": -1.0, "terrivel": -0.9,
	"desastre": -0.8, "catastrofe": -1.0, "tragedia": -0.9, "assustador": -0.8,
	"assustadora": -0.8, "mortal": -0.8, "devastador": -0.9, "devastadora": -0.9,
	"horrible": -1.0, "terrible": -0.9, "disaster": -0.8, "catastrophe": -1.0,
	"tragedy": -0.9, "terrifying": -0.8, "deadly": -0.8, "devastating": -0.9,
}

// Polarity estimates the emotional polarity of text in [-1, 1]. Zero means
// neutral or no recognized words. Deterministic: the same text always yields
// the same value.
func Polarity(text string) float64 {
	matched := 0
	sum := 0.0

	for _, word := range tokenize(text) {
		if v, ok := lexicon[word]; ok {
			matched++
			sum += v
		}
	}

	if matched == 0 {
		return 0
	}

	polarity := sum / float64(matched)
	if polarity > 1 {
		polarity = 1
	} else if polarity < -1 {
		polarity = -1
	}
	return polarity
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

// fold lowercases and strips diacritics so that "Incrível" matches "incrivel".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
