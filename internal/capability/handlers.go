package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/sources"
)

var (
	// ErrEmptyResult is returned when a capability produced nothing usable.
	ErrEmptyResult = errors.New("capability: empty result")
	// ErrDisabled is returned for a capability whose backing service is not configured.
	ErrDisabled = errors.New("capability: not available")
)

// ComplexityThreshold is the analysis time above which complexity is high.
const ComplexityThreshold = 3 * time.Second

// ComprehensiveSourceCount is the source count above which research is comprehensive.
const ComprehensiveSourceCount = 3

// ChartTitleLimit caps chart titles, in characters.
const ChartTitleLimit = 30

// LiveContext is real-time data (date, language, ...) offered to the model.
type LiveContext map[string]string

// String renders the context as a JSON object with sorted keys.
func (l LiveContext) String() string {
	if len(l) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(l[k])
		sb.Write(kb)
		sb.WriteByte(':')
		sb.Write(vb)
	}
	sb.WriteByte('}')
	return sb.String()
}

// Options configures Handlers.
type Options struct {
	// Language is the reply language code ("es", "en").
	Language    string
	AspectRatio string
	Logger      *zap.Logger
	// Clock measures processing time; time.Now when nil.
	Clock func() time.Time
}

// Handlers implements every capability over the completion and image services.
type Handlers struct {
	llm         adapter.Completer
	images      adapter.ImageGenerator
	language    string
	aspectRatio string
	logger      *zap.Logger
	clock       func() time.Time
}

// NewHandlers creates the capability handlers. images may be nil, which
// disables the image capability.
func NewHandlers(llm adapter.Completer, images adapter.ImageGenerator, opts Options) *Handlers {
	h := &Handlers{
		llm:         llm,
		images:      images,
		language:    opts.Language,
		aspectRatio: opts.AspectRatio,
		logger:      opts.Logger,
		clock:       opts.Clock,
	}
	if h.language == "" {
		h.language = "es"
	}
	if h.aspectRatio == "" {
		h.aspectRatio = adapter.DefaultAspectRatio
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// Invoke runs capability c for message. Results that carry nothing are
// reported as ErrEmptyResult.
func (h *Handlers) Invoke(ctx context.Context, c memory.Capability, message string, live LiveContext) (Result, error) {
	var (
		r   Result
		err error
	)
	switch c {
	case memory.CapResearch:
		r, err = h.Research(ctx, message, live)
	case memory.CapAnalysis:
		r, err = h.Analysis(ctx, message, live)
	case memory.CapImage:
		r, err = h.Image(ctx, message)
	case memory.CapChart:
		r, err = h.Chart(ctx, message)
	case memory.CapCode:
		r, err = h.Code(ctx, message)
	case memory.CapVR:
		r, err = h.VRScene(ctx, message)
	case memory.CapDocument:
		r, err = h.Document(ctx, message)
	default:
		return nil, fmt.Errorf("capability: unknown capability %q", c)
	}
	if err != nil {
		return nil, err
	}
	if Empty(r) {
		return nil, fmt.Errorf("%s: %w", c, ErrEmptyResult)
	}
	return r, nil
}

// LanguageName returns the English name of a language code.
func LanguageName(code string) string {
	switch strings.ToLower(code) {
	case "es":
		return "Spanish"
	case "en":
		return "English"
	default:
		return code
	}
}

func (h *Handlers) complete(ctx context.Context, req adapter.CompletionRequest) (string, error) {
	if h.llm == nil {
		return "", ErrDisabled
	}
	return adapter.Collect(ctx, h.llm, req)
}

// seconds rounds d to tenths of a second.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10) / 10
}

// Research answers message with sourced, factual content.
func (h *Handlers) Research(ctx context.Context, message string, live LiveContext) (*ResearchResult, error) {
	start := h.clock()
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: fmt.Sprintf(`Conduct thorough research on: %q

Provide comprehensive, factual information with:
- Clear structure and organization
- Specific, verifiable sources with URLs when possible
- Key statistics and data points
- Multiple perspectives on the topic
- Practical implications or applications

Format sources as [Source Name](URL), or [Source Name] for references without a URL.
Include publication dates when available.

Live context: %s
Language: %s`, message, live, LanguageName(h.language)),
		UserMessage: message,
	})
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}
	elapsed := h.clock().Sub(start)

	content := llmtext.Clean(raw)
	found := sources.Extract(content)
	depth := DepthBasic
	if len(found) > ComprehensiveSourceCount {
		depth = DepthComprehensive
	}
	return &ResearchResult{
		Content:        content,
		Sources:        found,
		ProcessingTime: seconds(elapsed),
		SourceCount:    len(found),
		Depth:          depth,
	}, nil
}

// Analysis reasons about message. A ```json block in the answer is taken as
// chart data and removed from the displayed content.
func (h *Handlers) Analysis(ctx context.Context, message string, live LiveContext) (*AnalysisResult, error) {
	start := h.clock()
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: fmt.Sprintf("Perform deep analytical reasoning on: %q\n\n"+
			"Provide:\n"+
			"- Multi-faceted analysis from different angles\n"+
			"- Logical reasoning chains\n"+
			"- Pros and cons evaluation\n"+
			"- Underlying factors and relationships\n"+
			"- Potential implications and outcomes\n"+
			"- Data-driven insights where applicable\n\n"+
			"If data visualization would help, include chart data as a Chart.js configuration in a ```json block.\n\n"+
			"Live context: %s\nLanguage: %s", message, live, LanguageName(h.language)),
		UserMessage: message,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	elapsed := h.clock().Sub(start)

	content, chart := SplitChartData(llmtext.Clean(raw))
	processing := seconds(elapsed)
	complexity := ComplexityModerate
	if processing > ComplexityThreshold.Seconds() {
		complexity = ComplexityHigh
	}
	return &AnalysisResult{
		Content:        content,
		ChartData:      chart,
		ProcessingTime: processing,
		Complexity:     complexity,
	}, nil
}

// SplitChartData removes the first ```json block holding a JSON object from
// content and returns it as chart data. Invalid JSON is left in place.
func SplitChartData(content string) (string, json.RawMessage) {
	block, ok := llmtext.FirstBlockOf(content, "json")
	if !ok {
		return content, nil
	}
	body := strings.TrimSpace(block.Body)
	if !strings.HasPrefix(body, "{") || !json.Valid([]byte(body)) {
		return content, nil
	}
	rest := content[:block.Start] + content[block.End:]
	return llmtext.Clean(rest), json.RawMessage(body)
}

// Image generates an image for prompt at the configured aspect ratio.
func (h *Handlers) Image(ctx context.Context, prompt string) (*ImageResult, error) {
	return h.ImageWithRatio(ctx, prompt, "")
}

// ImageWithRatio generates an image at aspect; the configured ratio when empty.
func (h *Handlers) ImageWithRatio(ctx context.Context, prompt, aspect string) (*ImageResult, error) {
	if h.images == nil {
		return nil, fmt.Errorf("image: %w", ErrDisabled)
	}
	if aspect == "" {
		aspect = h.aspectRatio
	}
	img, err := h.images.Generate(ctx, adapter.ImageRequest{Prompt: prompt, AspectRatio: aspect})
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	return &ImageResult{URL: img.URL, Prompt: prompt, AspectRatio: aspect}, nil
}

// Chart asks for a Chart.js specification in JSON mode.
func (h *Handlers) Chart(ctx context.Context, message string) (*ChartResult, error) {
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: `Generate visualization data for the user's request.
Return only valid, well-structured JSON usable with Chart.js.
Choose the most appropriate chart type (bar, line, pie, doughnut, radar).
Include descriptive labels, properly formatted datasets and a suitable color scheme.
Shape:
{
  "type": "bar|line|pie|doughnut|radar",
  "data": {"labels": [...], "datasets": [{"label": "...", "data": [...], "backgroundColor": [...], "borderColor": [...], "borderWidth": 1}]},
  "options": {"plugins": {"title": {"display": true, "text": "Chart Title"}}}
}`,
		UserMessage: message,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	obj, err := llmtext.Object(raw)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	if !json.Valid([]byte(obj)) {
		return nil, fmt.Errorf("chart: invalid chart JSON")
	}
	return &ChartResult{Spec: json.RawMessage(obj), Title: llmtext.Truncate(message, ChartTitleLimit)}, nil
}

// codeMeta is the first step of code generation.
type codeMeta struct {
	Language    string   `json:"language"`
	Framework   string   `json:"framework"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Difficulty  string   `json:"difficulty"`
}

// DefaultCodeLanguage is used when the language cannot be determined.
const DefaultCodeLanguage = "html"

// Code generates code in two steps: pick language and framework, then write
// the code. The first fenced block of the answer is the code.
func (h *Handlers) Code(ctx context.Context, message string) (*CodeResult, error) {
	meta := h.codeMeta(ctx, message)

	lead := meta.Language
	if meta.Framework != "" {
		lead += "/" + meta.Framework
	}
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: fmt.Sprintf(`You are an expert %s developer.
Generate production-quality code for the user's request.

Requirements:
1. Comment complex logic
2. Handle errors and validate input
3. Follow current best practices for %s
4. Include necessary imports (via CDN for web code)
5. Make web code responsive
6. Structure the code clearly

The code must be complete and ready to run. Put it in a single fenced code block
and do not add explanations outside code comments.`, lead, meta.Language),
		UserMessage: message,
	})
	if err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}

	content := strings.TrimSpace(raw)
	language := meta.Language
	if block, ok := llmtext.FirstBlock(raw); ok {
		content = block.Body
		if block.Lang != "" {
			language = block.Lang
		}
	}
	return &CodeResult{
		Content:     content,
		Language:    strings.ToLower(language),
		Framework:   strings.ToLower(meta.Framework),
		Title:       message,
		Description: meta.Description,
	}, nil
}

func (h *Handlers) codeMeta(ctx context.Context, message string) codeMeta {
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: `Analyze the prompt and determine the best programming language and framework to use.
Identify specific requirements, features or libraries needed.
Return JSON: {"language": string, "framework": string, "description": string, "features": [string], "difficulty": string}`,
		UserMessage: message,
		JSON:        true,
	})
	var meta codeMeta
	if err == nil {
		err = llmtext.DecodeObject(raw, &meta)
	}
	if err != nil {
		h.logger.Debug("code meta unavailable", zap.Error(err))
	}
	meta.Language = strings.ToLower(strings.TrimSpace(meta.Language))
	if meta.Language == "" {
		meta.Language = DefaultCodeLanguage
	}
	return meta
}

// VRScene generates an A-Frame scene for prompt.
func (h *Handlers) VRScene(ctx context.Context, prompt string) (*VRSceneResult, error) {
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: fmt.Sprintf(`Generate an A-Frame VR scene based on this prompt: %q
Include only valid A-Frame HTML for the scene content.
1. Use only BufferGeometry; never reference THREE.Geometry
2. Use standard primitives like a-box, a-sphere, a-cylinder, a-plane
3. Avoid custom components
4. Use animation components compatible with A-Frame 1.4.2
5. Do not emit <a-scene>, camera or lights; they are provided
Do not include explanations, just the A-Frame markup.`, prompt),
		UserMessage: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("vr scene: %w", err)
	}
	body := SanitizeScene(llmtext.StripFence(raw))
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("vr scene: %w", ErrEmptyResult)
	}
	return &VRSceneResult{Content: WrapScene(body), Title: prompt}, nil
}

// Document generates a formal document about message.
func (h *Handlers) Document(ctx context.Context, message string) (*DocumentResult, error) {
	raw, err := h.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: fmt.Sprintf(`Generate a professional document about the user's request.
Focus on facts and information only.
Do not include AI-like phrases or self-references.
Use formal, academic style with markdown headings.
Respond in %s only.`, LanguageName(h.language)),
		UserMessage: message,
	})
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return &DocumentResult{Content: CleanDocument(raw), Title: message}, nil
}
