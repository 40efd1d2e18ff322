package digest

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/fmaia/digesto/app/feed"
)

// EmptyMessage is rendered when nothing matched a recipient's preferences.
// No preamble, no footer.
const EmptyMessage = "Não encontramos notícias que correspondam às suas preferências hoje. Tente novamente mais tarde."

const noSummary = "Sem resumo disponível."

const footer = "💡 *Dica*: Sempre verifique a fonte das notícias que você recebe e desconfie de mensagens alarmistas ou sensacionalistas."

// preambles are written for readers with limited digital literacy: warm,
// plain language, no jargon.
var preambles = []string{
	"Bom dia! Aqui estão as notícias mais importantes para você hoje:",
	"Olá! Separamos algumas notícias confiáveis para você se manter informado(a):",
	"Tudo bem? Estas são as principais notícias de hoje que podem interessar você:",
	"Boa tarde! Selecionamos com cuidado estas notícias para manter você atualizado(a):",
}

const summaryLimit = 150

// Format renders a selection into a single message. Entry order follows the
// selection exactly; numbering starts at 1.
func Format(articles []feed.Article) string {
	if len(articles) == 0 {
		return EmptyMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", preambles[rand.Intn(len(preambles))])

	for i, article := range articles {
		summary := article.Summary
		if summary == "" {
			summary = noSummary
		}
		summary = truncateSummary(summary)

		fmt.Fprintf(&b, "*%d. %s*\n", i+1, article.Title)
		fmt.Fprintf(&b, "%s\n", summary)
		fmt.Fprintf(&b, "📰 Leia mais: %s\n\n", article.URL)
	}

	b.WriteString(footer)
	return b.String()
}

// truncateSummary caps a summary at 150 characters, replacing the tail with
// an ellipsis. Counts runes, not bytes: summaries are mostly accented
// Portuguese.
func truncateSummary(summary string) string {
	runes := []rune(summary)
	if len(runes) <= summaryLimit {
		return summary
	}
	return string(runes[:summaryLimit-3]) + "..."
}
