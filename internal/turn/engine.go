// Package turn runs one user message through the response pipeline:
// modification detection, intent analysis, the base response and
// capability dispatch.
package turn

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/intent"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/modify"
	"github.com/innovaplus/innova/internal/prompt"
)

var (
	// ErrBusy is returned when a message arrives while a turn is in flight.
	ErrBusy = errors.New("turn: a turn is already in progress")
	// ErrEmptyMessage is returned for a blank message.
	ErrEmptyMessage = errors.New("turn: empty message")
)

// HistoryLimit is how many conversation messages the engine keeps.
const HistoryLimit = 10

// Kind tags a reply.
type Kind string

const (
	KindResponse     Kind = "response"
	KindModification Kind = "modification"
)

// Artifact is one generated result in a reply.
type Artifact struct {
	Capability memory.Capability `json:"capability"`
	EntryID    string            `json:"entry_id"`
	Result     capability.Result `json:"-"`
	// Payload is the encoded Result handed to renderers.
	Payload json.RawMessage `json:"result"`
	Elapsed float64         `json:"elapsed_seconds,omitempty"`
}

// Reply is the outcome of one turn.
type Reply struct {
	Kind           Kind                   `json:"kind"`
	Text           string                 `json:"text"`
	Recommendation *intent.Recommendation `json:"recommendation,omitempty"`
	Artifacts      []Artifact             `json:"artifacts"`
	Modification   *modify.Outcome        `json:"modification,omitempty"`
	// Failed marks a turn whose base response could not be produced.
	Failed bool `json:"failed,omitempty"`
}

// Resetter drops derived state when history is cleared. *memory.Recaller implements it.
type Resetter interface {
	Reset()
}

// Deps are the collaborators of an Engine. Store, Analyzer, Detector,
// Fulfiller and Dispatcher are required.
type Deps struct {
	LLM        adapter.Completer
	Store      *memory.Store
	Analyzer   *intent.Analyzer
	Detector   *modify.Detector
	Fulfiller  *modify.Fulfiller
	Dispatcher *capability.Dispatcher
	Builder    *prompt.Builder
	Live       LiveProvider
	Resetter   Resetter
}

// Options configures an Engine.
type Options struct {
	// Language selects reply text ("es", "en"); language may be changed per
	// turn through LanguageFunc.
	Language     string
	LanguageFunc func() string
	// Enabled lists the capabilities the user has switched on, for the prompt.
	Enabled         func(memory.Capability) bool
	MaxTokens       int
	HistoryMessages int
	Logger          *zap.Logger
}

// Engine handles user turns one at a time.
type Engine struct {
	deps   Deps
	opts   Options
	logger *zap.Logger

	busy atomic.Bool

	mu      sync.Mutex
	history []adapter.Message
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, opts Options) *Engine {
	if deps.Builder == nil {
		deps.Builder = prompt.NewBuilder(nil, nil)
	}
	if opts.Language == "" {
		opts.Language = "es"
	}
	if deps.Live == nil {
		deps.Live = ClockLive{Language: opts.Language}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{deps: deps, opts: opts, logger: logger}
}

// Busy reports whether a turn is in flight.
func (e *Engine) Busy() bool { return e.busy.Load() }

func (e *Engine) language() string {
	if e.opts.LanguageFunc != nil {
		if l := e.opts.LanguageFunc(); l != "" {
			return l
		}
	}
	return e.opts.Language
}

// Handle processes one user message. A message that modifies recent content
// takes the modification path and never reaches the dispatcher. A failing
// base response ends the turn with a Failed reply; memory written before the
// failure is kept.
func (e *Engine) Handle(ctx context.Context, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	lang := e.language()
	msgs := messagesFor(lang)

	if in, ok := e.deps.Detector.Detect(ctx, message, e.deps.Store.RecentContent()); ok {
		return e.applyModification(ctx, in, message, msgs), nil
	}

	live := e.deps.Live.Live(ctx)
	summary := e.deps.Store.Summarize(message)
	earlier := e.pushHistory(adapter.Message{Role: adapter.RoleUser, Content: message})

	rec := e.deps.Analyzer.Analyze(ctx, message, summary)
	planned := e.deps.Dispatcher.Schedule(rec)

	base, err := e.baseResponse(ctx, message, earlier, summary, rec, planned, live, lang)
	if err != nil {
		e.logger.Error("turn failed", zap.Error(err))
		e.deps.Store.RecordUsage(memory.CapGeneral, message, nil, map[string]any{
			"error":      err.Error(),
			"successful": false,
		})
		return &Reply{Kind: KindResponse, Text: msgs.turnFailed, Recommendation: &rec, Failed: true}, nil
	}

	text := msgs.ActionPlan(planned, rec.Reasoning) + base + msgs.MemoryNote(summary) + msgs.CoherenceNote(summary.TotalUsageCount)
	e.pushHistory(adapter.Message{Role: adapter.RoleAssistant, Content: text})

	reply := &Reply{Kind: KindResponse, Text: text, Recommendation: &rec, Artifacts: []Artifact{}}
	for _, d := range e.deps.Dispatcher.Dispatch(ctx, message, rec, live) {
		payload, err := capability.Encode(d.Result)
		if err != nil {
			e.logger.Warn("result encode failed", zap.String("capability", string(d.Capability)), zap.Error(err))
			continue
		}
		reply.Artifacts = append(reply.Artifacts, Artifact{
			Capability: d.Capability,
			EntryID:    d.EntryID,
			Result:     d.Result,
			Payload:    payload,
			Elapsed:    d.Elapsed.Seconds(),
		})
	}
	return reply, nil
}

func (e *Engine) applyModification(ctx context.Context, in modify.Intent, message string, msgs messages) *Reply {
	reply := &Reply{
		Kind:      KindModification,
		Text:      msgs.Modifying(in.SpecificChange, in.TargetKind, in.Reason),
		Artifacts: []Artifact{},
	}
	out, err := e.deps.Fulfiller.Fulfill(ctx, in, message)
	if err != nil {
		e.logger.Warn("modification failed", zap.String("target", in.TargetID), zap.Error(err))
		reply.Text += "\n\n" + msgs.modifyFailed
		return reply
	}
	payload, err := capability.Encode(out.Result)
	if err != nil {
		e.logger.Warn("result encode failed", zap.String("entry", out.EntryID), zap.Error(err))
		reply.Text += "\n\n" + msgs.modifyFailed
		return reply
	}
	reply.Modification = out
	reply.Artifacts = append(reply.Artifacts, Artifact{
		Capability: out.Result.Capability(),
		EntryID:    out.EntryID,
		Result:     out.Result,
		Payload:    payload,
	})
	return reply
}

func (e *Engine) baseResponse(ctx context.Context, message string, earlier []adapter.Message, summary memory.Summary,
	rec intent.Recommendation, planned []memory.Capability, live capability.LiveContext, lang string) (string, error) {
	if e.deps.LLM == nil {
		return "", capability.ErrDisabled
	}
	built := e.deps.Builder.Build(prompt.BuildOptions{
		Message:         message,
		History:         earlier,
		Summary:         summary,
		Enabled:         e.enabledCapabilities(),
		Planned:         planned,
		PrimaryIntent:   rec.PrimaryIntent,
		Live:            live,
		Language:        capability.LanguageName(lang),
		MaxTokens:       e.opts.MaxTokens,
		HistoryMessages: e.opts.HistoryMessages,
	})
	e.logger.Debug("base prompt built",
		zap.Int("tokens", built.TokensUsed),
		zap.Int("history", built.HistoryUsed),
		zap.Strings("sections", built.Sections))

	raw, err := adapter.Collect(ctx, e.deps.LLM, built.Request)
	if err != nil {
		return "", err
	}
	return llmtext.Clean(raw), nil
}

func (e *Engine) enabledCapabilities() []memory.Capability {
	var out []memory.Capability
	for _, c := range memory.Capabilities {
		if e.opts.Enabled == nil || e.opts.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

// pushHistory appends m, keeps the last HistoryLimit messages and returns the
// messages that preceded m.
func (e *Engine) pushHistory(m adapter.Message) []adapter.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	earlier := append([]adapter.Message(nil), e.history...)
	e.history = append(e.history, m)
	if n := len(e.history); n > HistoryLimit {
		e.history = append([]adapter.Message(nil), e.history[n-HistoryLimit:]...)
	}
	return earlier
}

// History returns the kept conversation messages, oldest first.
func (e *Engine) History() []adapter.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]adapter.Message(nil), e.history...)
}

// ClearHistory forgets the conversation and the session's content and usage.
// Preference counts survive. It fails with ErrBusy while a turn is in flight.
func (e *Engine) ClearHistory() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)

	e.deps.Store.Clear()
	if e.deps.Resetter != nil {
		e.deps.Resetter.Reset()
	}
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
	e.logger.Info("history cleared")
	return nil
}
