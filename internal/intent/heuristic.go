package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/innovaplus/innova/internal/memory"
)

// Memory score weights of the heuristic fallback. A capability is recommended
// without a keyword match only when its summed score exceeds MemoryThreshold.
const (
	TopCapabilityBoost = 0.2
	RelatedResultBoost = 0.3
	MemoryThreshold    = 0.4

	// FallbackConfidence is the confidence reported by heuristic analysis.
	FallbackConfidence = 0.5
)

// Keyword lists, English and Spanish, written without accents. Single words
// of five or more letters also match as prefixes ("graph" matches "graphs").
var keywords = map[memory.Capability]keywordSet{
	memory.CapResearch: newKeywordSet(
		"research", "investigate", "investiga", "study", "studies", "facts", "data", "statistics",
		"information", "sources", "evidence",
		"investigar", "investigacion", "estudiar", "estudio", "datos", "estadisticas", "informacion",
		"fuentes", "evidencia",
	),
	memory.CapAnalysis: newKeywordSet(
		"analyze", "analyse", "analysis", "compare", "comparison", "evaluate", "pros", "cons",
		"advantages", "disadvantages", "implications", "tradeoffs",
		"analizar", "analisis", "comparar", "comparacion", "evaluar", "ventajas", "desventajas",
		"implicaciones",
	),
	memory.CapImage: newKeywordSet(
		"image", "picture", "photo", "visual", "draw", "drawing", "illustration", "show me", "visualize",
		"imagen", "foto", "dibujar", "dibujo", "ilustracion", "muestrame", "visualizar",
	),
	memory.CapChart: newKeywordSet(
		"chart", "graph", "plot", "plots", "histogram", "pie chart", "bar chart",
		"grafico", "grafica", "diagrama", "histograma",
	),
	memory.CapCode: newKeywordSet(
		"code", "coding", "program", "script", "function", "algorithm", "javascript", "typescript",
		"python", "html", "css", "golang",
		"codigo", "programa", "funcion", "algoritmo",
	),
	memory.CapVR: newKeywordSet(
		"vr", "ar", "3d", "virtual reality", "augmented reality", "scene", "environment", "immersive",
		"a frame", "aframe",
		"realidad virtual", "realidad aumentada", "escena", "ambiente", "inmersivo", "inmersiva",
	),
	memory.CapDocument: newKeywordSet(
		"document", "report", "pdf", "word", "excel", "powerpoint", "presentation", "docx", "pptx", "xlsx",
		"documento", "reporte", "informe", "presentacion",
	),
}

// minPrefixLen is the shortest single-word keyword that also matches as a prefix.
const minPrefixLen = 5

type keywordSet struct {
	words   map[string]bool
	prefix  []string
	phrases []string
}

func newKeywordSet(list ...string) keywordSet {
	ks := keywordSet{words: map[string]bool{}}
	for _, raw := range list {
		tokens := Tokenize(raw)
		switch {
		case len(tokens) > 1:
			ks.phrases = append(ks.phrases, " "+strings.Join(tokens, " ")+" ")
		case len(tokens) == 1:
			ks.words[tokens[0]] = true
			if len([]rune(tokens[0])) >= minPrefixLen {
				ks.prefix = append(ks.prefix, tokens[0])
			}
		}
	}
	return ks
}

func (ks keywordSet) match(tokens []string, joined string) bool {
	for _, t := range tokens {
		if ks.words[t] {
			return true
		}
		for _, p := range ks.prefix {
			if strings.HasPrefix(t, p) {
				return true
			}
		}
	}
	for _, p := range ks.phrases {
		if strings.Contains(joined, p) {
			return true
		}
	}
	return false
}

// Normalize lowercases s and strips diacritics, so "Gráfico" becomes "grafico".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Tokenize normalizes s and splits it on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// KeywordMatch reports whether message contains one of c's keywords.
func KeywordMatch(c memory.Capability, message string) bool {
	ks, ok := keywords[c]
	if !ok {
		return false
	}
	tokens := Tokenize(message)
	return ks.match(tokens, " "+strings.Join(tokens, " ")+" ")
}

// MemoryScore is the memory-derived score of c for the current summary.
func MemoryScore(c memory.Capability, summary memory.Summary) float64 {
	score := 0.0
	if summary.HasTop(c) {
		score += TopCapabilityBoost
	}
	if summary.HasRelated(c) {
		score += RelatedResultBoost
	}
	return score
}

// Heuristic recommends capabilities without a model call: a capability is on
// when the message names one of its keywords or its memory score exceeds
// MemoryThreshold.
func Heuristic(message string, summary memory.Summary) Recommendation {
	rec := Recommendation{
		PrimaryIntent:   IntentInformational,
		Confidence:      FallbackConfidence,
		Modes:           map[memory.Capability]bool{},
		Reasoning:       "Heuristic analysis from keywords and session memory",
		ExpectedOutputs: []string{"Text response"},
		MemoryInfluence: "Used top capabilities and related past results",
		Fallback:        true,
	}
	if strings.TrimSpace(message) == "" {
		return rec
	}

	tokens := Tokenize(message)
	joined := " " + strings.Join(tokens, " ") + " "
	for _, c := range memory.Capabilities {
		ks := keywords[c]
		rec.Modes[c] = ks.match(tokens, joined) || MemoryScore(c, summary) > MemoryThreshold
	}
	return rec
}
