// Package intent decides which capabilities should run for a message.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/memory"
)

// Primary intents a recommendation can carry.
const (
	IntentInformational = "informational"
	IntentCreative      = "creative"
	IntentTechnical     = "technical"
	IntentAnalytical    = "analytical"
	IntentVisual        = "visual"
	IntentResearch      = "research"
)

var primaryIntents = map[string]bool{
	IntentInformational: true,
	IntentCreative:      true,
	IntentTechnical:     true,
	IntentAnalytical:    true,
	IntentVisual:        true,
	IntentResearch:      true,
}

// ErrMalformed is returned when the model's analysis does not have the
// expected shape.
var ErrMalformed = errors.New("intent: malformed analysis")

// Recommendation is the analyzer's verdict for one message.
type Recommendation struct {
	PrimaryIntent   string                     `json:"primaryIntent"`
	Confidence      float64                    `json:"confidence"`
	Modes           map[memory.Capability]bool `json:"recommendedModes"`
	Reasoning       string                     `json:"reasoning"`
	ExpectedOutputs []string                   `json:"expectedOutputs,omitempty"`
	MemoryInfluence string                     `json:"memoryInfluence,omitempty"`
	// Fallback is set when the heuristic produced the recommendation.
	Fallback bool `json:"fallback"`
}

// Wants reports whether c is recommended.
func (r Recommendation) Wants(c memory.Capability) bool {
	return r.Modes[c]
}

// Enabled returns the recommended capabilities in canonical order.
func (r Recommendation) Enabled() []memory.Capability {
	var out []memory.Capability
	for _, c := range memory.Capabilities {
		if r.Modes[c] {
			out = append(out, c)
		}
	}
	return out
}

// Analyzer asks the completion service for a recommendation and falls back to
// Heuristic when the call or the parse fails.
type Analyzer struct {
	llm    adapter.Completer
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. A nil llm always uses the heuristic.
func NewAnalyzer(llm adapter.Completer, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{llm: llm, logger: logger}
}

// Analyze returns the recommendation for message. It never fails: errors
// degrade to the heuristic.
func (a *Analyzer) Analyze(ctx context.Context, message string, summary memory.Summary) Recommendation {
	if strings.TrimSpace(message) == "" || a.llm == nil {
		return Heuristic(message, summary)
	}

	raw, err := adapter.Collect(ctx, a.llm, adapter.CompletionRequest{
		SystemPrompt: analysisPrompt(message, summary),
		UserMessage:  message,
		JSON:         true,
		Temperature:  0.2,
	})
	if err != nil {
		a.logger.Info("intent analysis unavailable, using heuristic", zap.Error(err))
		return Heuristic(message, summary)
	}

	rec, err := Parse(raw)
	if err != nil {
		a.logger.Info("intent analysis unparseable, using heuristic", zap.Error(err))
		return Heuristic(message, summary)
	}
	return rec
}

// analysisResponse is the wire shape requested from the model. Modes is kept
// raw so that non-boolean values are rejected.
type analysisResponse struct {
	PrimaryIntent   string                     `json:"primaryIntent"`
	Confidence      *float64                   `json:"confidence"`
	Modes           map[string]json.RawMessage `json:"recommendedModes"`
	Reasoning       string                     `json:"reasoning"`
	ExpectedOutputs []string                   `json:"expectedOutputs"`
	MemoryInfluence string                     `json:"memoryInfluence"`
}

// modeAliases maps model-facing mode names to capabilities.
var modeAliases = map[string]memory.Capability{
	"analytical": memory.CapAnalysis,
	"vr-scene":   memory.CapVR,
	"vrscene":    memory.CapVR,
}

// Parse decodes a model analysis strictly: recommendedModes must be an object
// of booleans, confidence must lie in [0, 1] and primaryIntent, when given,
// must be a known intent. Unknown mode names are ignored.
func Parse(raw string) (Recommendation, error) {
	var resp analysisResponse
	if err := llmtext.DecodeObject(raw, &resp); err != nil {
		return Recommendation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if resp.Modes == nil {
		return Recommendation{}, fmt.Errorf("%w: missing recommendedModes", ErrMalformed)
	}

	rec := Recommendation{
		PrimaryIntent:   strings.ToLower(strings.TrimSpace(resp.PrimaryIntent)),
		Modes:           make(map[memory.Capability]bool, len(memory.Capabilities)),
		Reasoning:       resp.Reasoning,
		ExpectedOutputs: resp.ExpectedOutputs,
		MemoryInfluence: resp.MemoryInfluence,
	}
	if rec.PrimaryIntent == "" {
		rec.PrimaryIntent = IntentInformational
	}
	if !primaryIntents[rec.PrimaryIntent] {
		return Recommendation{}, fmt.Errorf("%w: unknown primaryIntent %q", ErrMalformed, resp.PrimaryIntent)
	}
	if resp.Confidence != nil {
		if *resp.Confidence < 0 || *resp.Confidence > 1 {
			return Recommendation{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformed, *resp.Confidence)
		}
		rec.Confidence = *resp.Confidence
	}

	for _, c := range memory.Capabilities {
		rec.Modes[c] = false
	}
	for name, v := range resp.Modes {
		c := memory.Capability(strings.ToLower(name))
		if alias, ok := modeAliases[string(c)]; ok {
			c = alias
		}
		if !memory.ValidCapability(c) {
			continue
		}
		var on bool
		if err := json.Unmarshal(v, &on); err != nil {
			return Recommendation{}, fmt.Errorf("%w: mode %q is not a boolean", ErrMalformed, name)
		}
		rec.Modes[c] = on
	}
	return rec, nil
}

var capabilityDescriptions = []struct {
	name string
	desc string
}{
	{"research", "Factual investigation with source citations"},
	{"analytical", "Deep reasoning, pros/cons, logical analysis"},
	{"image", "Visual content generation from descriptions"},
	{"chart", "Data visualization and statistical graphics"},
	{"code", "Programming in any language with live preview"},
	{"vr", "3D/VR scene creation with A-Frame"},
	{"document", "Professional document generation (reports, presentations)"},
}

func analysisPrompt(message string, summary memory.Summary) string {
	var sb strings.Builder
	sb.WriteString("You are InnovA+ analyzing a user query to determine optimal response modes.\n\n")

	sb.WriteString("AVAILABLE CAPABILITIES:\n")
	for _, d := range capabilityDescriptions {
		fmt.Fprintf(&sb, "- %s: %s\n", d.name, d.desc)
	}

	sb.WriteString("\nMEMORY CONTEXT:\n")
	recent := summary.RecentUsage
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	if len(recent) == 0 {
		sb.WriteString("- Recent function usage: none\n")
	} else {
		sb.WriteString("- Recent function usage:\n")
		for _, u := range recent {
			status := "ok"
			if !u.Succeeded {
				status = "failed"
			}
			fmt.Fprintf(&sb, "  - %s (%s): %q\n", u.Capability, status, u.QueryExcerpt)
		}
	}
	top := make([]string, 0, len(summary.TopCapabilities))
	for _, c := range summary.TopCapabilities {
		top = append(top, string(c))
	}
	if len(top) == 0 {
		top = append(top, "none")
	}
	fmt.Fprintf(&sb, "- Preferred modes: %s\n", strings.Join(top, ", "))
	if len(summary.RelatedPastResults) == 0 {
		sb.WriteString("- Similar past queries: none\n")
	} else {
		sb.WriteString("- Similar past queries:\n")
		for _, c := range memory.Capabilities {
			if lc, ok := summary.RelatedPastResults[c]; ok {
				fmt.Fprintf(&sb, "  - %s: %q\n", c, memory.Excerpt(lc.Query))
			}
		}
	}
	fmt.Fprintf(&sb, "- Total function uses this session: %d\n", summary.TotalUsageCount)

	sb.WriteString(`
ANALYSIS CRITERIA:
- Only recommend modes that significantly enhance the response
- Consider what worked well for similar queries in the past
- Be conservative: quality over quantity

`)
	fmt.Fprintf(&sb, "Analyze this query: %q\n\n", message)
	sb.WriteString(`Respond with JSON only:
{
  "primaryIntent": "informational|creative|technical|analytical|visual|research",
  "confidence": 0.0-1.0,
  "recommendedModes": {"research": bool, "analytical": bool, "image": bool, "chart": bool, "code": bool, "vr": bool, "document": bool},
  "reasoning": "why these modes",
  "expectedOutputs": ["what will be generated"],
  "memoryInfluence": "how past usage influenced this decision"
}`)
	return sb.String()
}
