package modify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/sources"
)

// DerivedPrefix marks the prompt of an entry produced by a modification.
const DerivedPrefix = "Modified: "

// Store is the memory the fulfiller reads and writes. *memory.Store implements it.
type Store interface {
	FindEntry(id string) (memory.ContentEntry, bool)
	LogModification(e memory.ModificationLogEntry)
	AppendModification(targetID string, m memory.Modification) error
	RecordContent(kind memory.ContentKind, prompt string, result json.RawMessage, metadata map[string]any) string
	SetActiveTarget(id string)
}

// Outcome is a revised artifact together with what it revised.
type Outcome struct {
	Result         capability.Result `json:"-"`
	EntryID        string            `json:"entry_id"`
	TargetID       string            `json:"original_id"`
	OriginalPrompt string            `json:"original_prompt"`
	SpecificChange string            `json:"specific_change"`
	Reason         string            `json:"modification_reason"`
}

// Options configures a Fulfiller.
type Options struct {
	Language string
	Indexer  capability.Indexer
	Logger   *zap.Logger
}

// Fulfiller regenerates a stored artifact with a requested change.
type Fulfiller struct {
	llm      adapter.Completer
	handlers *capability.Handlers
	store    Store
	language string
	indexer  capability.Indexer
	logger   *zap.Logger
}

// NewFulfiller creates a Fulfiller. handlers serves image and VR scene
// regeneration.
func NewFulfiller(llm adapter.Completer, handlers *capability.Handlers, store Store, opts Options) *Fulfiller {
	f := &Fulfiller{
		llm:      llm,
		handlers: handlers,
		store:    store,
		language: opts.Language,
		indexer:  opts.Indexer,
		logger:   opts.Logger,
	}
	if f.language == "" {
		f.language = "es"
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// BasePrompt strips derived-prompt markers.
func BasePrompt(prompt string) string {
	for strings.HasPrefix(prompt, DerivedPrefix) {
		prompt = strings.TrimPrefix(prompt, DerivedPrefix)
	}
	return prompt
}

// DerivedPrompt marks prompt as the source of a modified entry.
func DerivedPrompt(prompt string) string {
	return DerivedPrefix + BasePrompt(prompt)
}

// Fulfill applies in to its target entry. The request is logged before any
// generation. On success the target's modification history grows by one and
// a new entry holding the revised artifact is recorded; the target itself is
// never replaced.
func (f *Fulfiller) Fulfill(ctx context.Context, in Intent, message string) (*Outcome, error) {
	target, ok := f.store.FindEntry(in.TargetID)
	if !ok {
		return nil, fmt.Errorf("modify: %w: %s", memory.ErrNotFound, in.TargetID)
	}

	f.store.LogModification(memory.ModificationLogEntry{
		OriginalID:     target.ID,
		OriginalKind:   target.Kind,
		RequestText:    message,
		SpecificChange: in.SpecificChange,
		Reason:         in.Reason,
	})
	f.store.SetActiveTarget(target.ID)

	original, err := capability.Decode(target.Kind, target.Result)
	if err != nil {
		return nil, fmt.Errorf("modify: %w", err)
	}

	revised, err := f.revise(ctx, target, original, in, message)
	if err != nil {
		return nil, fmt.Errorf("modify %s: %w", target.Kind, err)
	}
	if capability.Empty(revised) {
		return nil, fmt.Errorf("modify %s: %w", target.Kind, capability.ErrEmptyResult)
	}

	raw, err := capability.Encode(revised)
	if err != nil {
		return nil, fmt.Errorf("modify: %w", err)
	}
	if err := f.store.AppendModification(target.ID, memory.Modification{
		RequestText:    message,
		SpecificChange: in.SpecificChange,
		Result:         raw,
	}); err != nil {
		return nil, fmt.Errorf("modify: %w", err)
	}

	metadata := make(map[string]any, len(target.Metadata)+3)
	for k, v := range target.Metadata {
		metadata[k] = v
	}
	metadata[memory.MetaIsModification] = true
	metadata[memory.MetaOriginalID] = target.ID
	metadata[memory.MetaModificationReason] = in.Reason

	prompt := DerivedPrompt(target.OriginalPrompt)
	id := f.store.RecordContent(target.Kind, prompt, raw, metadata)
	if f.indexer != nil {
		f.indexer.Index(ctx, id, target.Kind, prompt)
	}

	f.logger.Info("content modified",
		zap.String("original_id", target.ID),
		zap.String("entry_id", id),
		zap.String("kind", string(target.Kind)))

	return &Outcome{
		Result:         revised,
		EntryID:        id,
		TargetID:       target.ID,
		OriginalPrompt: target.OriginalPrompt,
		SpecificChange: in.SpecificChange,
		Reason:         in.Reason,
	}, nil
}

func (f *Fulfiller) revise(ctx context.Context, target memory.ContentEntry, original capability.Result, in Intent, message string) (capability.Result, error) {
	switch original.(type) {
	case *capability.ImageResult, *capability.VRSceneResult:
		if f.handlers == nil {
			return nil, capability.ErrDisabled
		}
	}

	switch orig := original.(type) {
	case *capability.CodeResult:
		return f.reviseCode(ctx, target, orig, in, message)
	case *capability.ImageResult:
		aspect := orig.AspectRatio
		if a, ok := target.Metadata[memory.MetaAspectRatio].(string); ok && a != "" {
			aspect = a
		}
		return f.handlers.ImageWithRatio(ctx, changedPrompt(target, in), aspect)
	case *capability.VRSceneResult:
		return f.handlers.VRScene(ctx, changedPrompt(target, in))
	case *capability.DocumentResult:
		text, err := f.rewrite(ctx, documentPrompt, orig.Content, target, in, message, false)
		if err != nil {
			return nil, err
		}
		return &capability.DocumentResult{Content: capability.CleanDocument(text), Title: DerivedPrompt(orig.Title)}, nil
	case *capability.AnalysisResult:
		text, err := f.rewrite(ctx, analysisPrompt, orig.Content, target, in, message, false)
		if err != nil {
			return nil, err
		}
		content, chart := capability.SplitChartData(llmtext.Clean(text))
		if chart == nil {
			chart = orig.ChartData
		}
		return &capability.AnalysisResult{Content: content, ChartData: chart, Complexity: orig.Complexity}, nil
	case *capability.ResearchResult:
		text, err := f.rewrite(ctx, researchPrompt, orig.Content, target, in, message, false)
		if err != nil {
			return nil, err
		}
		content := llmtext.Clean(text)
		found := sources.Extract(content)
		depth := capability.DepthBasic
		if len(found) > capability.ComprehensiveSourceCount {
			depth = capability.DepthComprehensive
		}
		return &capability.ResearchResult{Content: content, Sources: found, SourceCount: len(found), Depth: depth}, nil
	case *capability.ChartResult:
		text, err := f.rewrite(ctx, genericPrompt, string(orig.Spec), target, in, message, true)
		if err != nil {
			return nil, err
		}
		obj, err := llmtext.Object(text)
		if err != nil || !json.Valid([]byte(obj)) {
			return nil, fmt.Errorf("revised chart is not valid JSON")
		}
		return &capability.ChartResult{Spec: json.RawMessage(obj), Title: llmtext.Truncate(DerivedPrompt(orig.Title), capability.ChartTitleLimit)}, nil
	default:
		return nil, fmt.Errorf("no revision routine for %T", original)
	}
}

func (f *Fulfiller) reviseCode(ctx context.Context, target memory.ContentEntry, orig *capability.CodeResult, in Intent, message string) (capability.Result, error) {
	language := orig.Language
	if language == "" {
		language = capability.DefaultCodeLanguage
	}
	raw, err := f.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: fmt.Sprintf(`You are modifying existing code based on user feedback.

ORIGINAL CODE:
%s

ORIGINAL PROMPT: %q
MODIFICATION REQUEST: %q
SPECIFIC CHANGE NEEDED: %q

Instructions:
1. Keep the core functionality that works
2. Make only the requested changes
3. Ensure the code still functions properly
4. Keep the same programming language (%s) and style
5. Mark what changed with brief code comments

Return the complete modified code in a single fenced code block.`, orig.Content, target.OriginalPrompt, message, in.SpecificChange, language),
		UserMessage: message,
	})
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(raw)
	if block, ok := llmtext.FirstBlock(raw); ok {
		content = block.Body
	}
	return &capability.CodeResult{
		Content:     content,
		Language:    language,
		Framework:   orig.Framework,
		Title:       DerivedPrompt(orig.Title),
		Description: orig.Description,
	}, nil
}

// changedPrompt is the generation prompt for regenerated media:
// the original prompt followed by ", but " and the change.
func changedPrompt(target memory.ContentEntry, in Intent) string {
	change := in.SpecificChange
	if change == "" {
		change = in.NewRequirements
	}
	return BasePrompt(target.OriginalPrompt) + ", but " + change
}

const (
	documentPrompt = `Modify this document based on user feedback.
Keep the document structure but make the requested changes.`
	analysisPrompt = `Update this analysis based on new requirements.
Provide an updated analysis that addresses the new requirements while building on the original work.`
	researchPrompt = `Expand or modify this research based on new requirements.
Provide updated research that addresses the new requirements.
Keep the sources, formatted as [Source Name](URL), and maintain research quality.`
	genericPrompt = `Modify this content based on user feedback.
Provide the modified content in the same format as the original.`
)

func (f *Fulfiller) rewrite(ctx context.Context, instructions, content string, target memory.ContentEntry, in Intent, message string, asJSON bool) (string, error) {
	var sb strings.Builder
	sb.WriteString(instructions)
	fmt.Fprintf(&sb, "\n\nORIGINAL CONTENT:\n%s\n\n", content)
	fmt.Fprintf(&sb, "ORIGINAL REQUEST: %q\n", target.OriginalPrompt)
	fmt.Fprintf(&sb, "MODIFICATION REQUEST: %q\n", message)
	fmt.Fprintf(&sb, "SPECIFIC CHANGE: %q\n", in.SpecificChange)
	if in.NewRequirements != "" {
		fmt.Fprintf(&sb, "NEW REQUIREMENTS: %q\n", in.NewRequirements)
	}
	fmt.Fprintf(&sb, "\nRespond in %s only.", capability.LanguageName(f.language))

	return f.complete(ctx, adapter.CompletionRequest{
		SystemPrompt: sb.String(),
		UserMessage:  message,
		JSON:         asJSON,
	})
}

func (f *Fulfiller) complete(ctx context.Context, req adapter.CompletionRequest) (string, error) {
	if f.llm == nil {
		return "", capability.ErrDisabled
	}
	return adapter.Collect(ctx, f.llm, req)
}
