package risk

import (
	"testing"
)

func TestScore_ObviousFakeNewsSaturates(t *testing.T) {
	scorer := NewScorer(nil)

	title := "MÉDICOS CHOCADOS!!! Cura MILAGROSA revelada"
	body := "Você não vai acreditar! Esta CURA MILAGROSA é 100% comprovado!!! " +
		"A mídia está escondendo tudo, compartilhe antes que apaguem! " +
		"Eles não querem que você saiba!!!"

	score, sig := scorer.Evaluate(title, body)

	if sig.KeywordMatches < 3 {
		t.Errorf("Expected at least 3 keyword matches, got %d (%v)", sig.KeywordMatches, sig.MatchedKeywords)
	}
	if sig.Clickbait < 2 {
		t.Errorf("Expected at least 2 clickbait matches, got %d", sig.Clickbait)
	}
	if sig.Exclamation == 0 {
		t.Error("Expected non-zero exclamation density")
	}
	if sig.AllCaps == 0 {
		t.Error("Expected non-zero all-caps density")
	}
	if score < 0.95 {
		t.Errorf("Expected saturated score near 1.0, got %g (raw %g)", score, sig.Raw)
	}
	if score > 1 {
		t.Errorf("Score must never exceed 1, got %g", score)
	}
}

func TestScore_NeutralNewsIsClean(t *testing.T) {
	scorer := NewScorer(nil)

	title := "Pesquisadores identificam novo tratamento para diabetes tipo 2"
	body := "Um estudo publicado na revista Nature Medicine mostrou resultados " +
		"para um novo medicamento no tratamento de diabetes tipo 2. A pesquisa " +
		"acompanhou 300 pacientes durante dois anos."

	score, sig := scorer.Evaluate(title, body)

	if sig.KeywordMatches != 0 || sig.Clickbait != 0 || sig.Extreme {
		t.Errorf("Expected no signals for neutral text, got %+v", sig)
	}
	if score != 0 {
		t.Errorf("Expected score 0 for neutral text, got %g", score)
	}
}

func TestScore_Deterministic(t *testing.T) {
	scorer := NewScorer(nil)
	title := "Segredo revelado sobre dieta"
	body := "Conteúdo com conspiração e promessas!!!!"

	first := scorer.Score(title, body)
	for i := 0; i < 10; i++ {
		if s := scorer.Score(title, body); s != first {
			t.Fatalf("Score not deterministic: %g != %g", s, first)
		}
	}
}

func TestScore_NormalizationConstant(t *testing.T) {
	scorer := NewScorer(nil)

	// One keyword match, weight 2, and nothing else: exactly 2/20.
	score := scorer.Score("", "conspiração")
	if score != 0.1 {
		t.Errorf("Expected 2/20 = 0.1, got %g", score)
	}

	// A longer keyword list must not move the ceiling.
	wide := NewScorer(append(append([]string{}, DefaultKeywords...),
		"extra um", "extra dois", "extra tres", "extra quatro"))
	if s := wide.Score("", "conspiração"); s != 0.1 {
		t.Errorf("Normalization must not depend on keyword count, got %g", s)
	}
}

func TestScore_KeywordFolding(t *testing.T) {
	scorer := NewScorer(nil)

	accented := scorer.Score("", "Isso é pura CONSPIRAÇÃO")
	plain := scorer.Score("", "isso e pura conspiracao")
	if accented == 0 || plain == 0 {
		t.Fatalf("Keyword should match regardless of case and accents: %g, %g", accented, plain)
	}
}

func TestExclamationDensity_GateAtThree(t *testing.T) {
	if d := exclamationDensity("wow! such! news!", 3); d != 0 {
		t.Errorf("Three exclamation marks should score 0, got %g", d)
	}
	if d := exclamationDensity("a! b! c! d!", 4); d != 10 {
		t.Errorf("Expected density 4/4*10 = 10, got %g", d)
	}
}

func TestAllCapsDensity(t *testing.T) {
	if d := allCapsDensity("tudo em minúsculas aqui hoje"); d != 0 {
		t.Errorf("Expected 0 caps density, got %g", d)
	}

	// 2 shouted words out of 4; short all-caps words are ignored.
	d := allCapsDensity("URGENTE notícia BOMBÁSTICA ok")
	if d != 5 {
		t.Errorf("Expected 2/4*10 = 5, got %g", d)
	}

	// Trailing punctuation does not hide shouting.
	if d := allCapsDensity("CHOCADOS!!! com isso tudo"); d == 0 {
		t.Error("Expected punctuated all-caps word to count")
	}
}

func TestAccepted(t *testing.T) {
	// Default policy: MinConfidence 0.7 rejects risk >= 0.3.
	if !Accepted(0.29, 0.7) {
		t.Error("Risk below the threshold should be accepted")
	}
	if Accepted(0.3, 0.7) {
		t.Error("Risk at the threshold should be rejected")
	}
	if Accepted(0.99, 0.7) {
		t.Error("High risk should be rejected")
	}
}
