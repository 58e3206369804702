package prompt

import (
	"strings"

	"github.com/innovaplus/innova/internal/adapter"
	"github.com/innovaplus/innova/internal/memory"
)

// Defaults applied to zero BuildOptions fields.
const (
	DefaultMaxTokens       = 6000
	DefaultHistoryMessages = 6
)

// BuildOptions controls how a base-response prompt is assembled.
type BuildOptions struct {
	Message string
	// History holds earlier turns, oldest first, without Message.
	History       []adapter.Message
	Summary       memory.Summary
	Enabled       []memory.Capability
	Planned       []memory.Capability
	PrimaryIntent string
	Live          map[string]string
	// Language is the reply language name, e.g. "Spanish".
	Language        string
	MaxTokens       int
	HistoryMessages int
}

// Built is the result of a prompt build.
type Built struct {
	Request     adapter.CompletionRequest
	TokensUsed  int
	HistoryUsed int
	// Sections lists the optional sections that fit the budget, for --verbose output.
	Sections []string
}

// Builder assembles token-budget-aware base-response prompts.
type Builder struct {
	formatter *Formatter
	counter   Counter
}

// NewBuilder creates a Builder. A nil counter falls back to Estimator.
func NewBuilder(formatter *Formatter, counter Counter) *Builder {
	if formatter == nil {
		formatter = NewFormatter()
	}
	if counter == nil {
		counter = Estimator{}
	}
	return &Builder{formatter: formatter, counter: counter}
}

// Build constructs the completion request for opts.Message within the token
// budget. The identity block, the closing instruction and the message itself
// are always included; the memory, status, recent-turn and live sections
// follow in that priority, and conversation history fills what is left,
// newest turns first.
func (b *Builder) Build(opts BuildOptions) *Built {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.HistoryMessages == 0 {
		opts.HistoryMessages = DefaultHistoryMessages
	}

	identity := b.formatter.FormatIdentity()
	closing := b.formatter.FormatClosing(opts.Language)
	remaining := opts.MaxTokens - b.counter.Count(identity) - b.counter.Count(closing) - b.counter.Count(opts.Message)

	sections := []string{identity}
	var used []string

	optional := []struct {
		name string
		text string
	}{
		{"memory", b.formatter.FormatMemory(opts.Summary)},
		{"status", b.formatter.FormatStatus(opts.Enabled, opts.Planned, opts.PrimaryIntent, len(opts.History), opts.Live)},
		{"recent turns", b.formatter.FormatRecentTurns(opts.History)},
		{"live data", b.formatter.FormatLive(opts.Live)},
	}
	for _, s := range optional {
		if s.text == "" {
			continue
		}
		tokens := b.counter.Count(s.text)
		if tokens <= remaining {
			sections = append(sections, s.text)
			remaining -= tokens
			used = append(used, s.name)
		} else if remaining > 100 {
			sections = append(sections, b.counter.Truncate(s.text, remaining-50))
			remaining = 50
			used = append(used, s.name+" (truncated)")
		}
	}
	sections = append(sections, closing)

	history := opts.History
	if len(history) > opts.HistoryMessages {
		history = history[len(history)-opts.HistoryMessages:]
	}
	start := len(history)
	for start > 0 {
		tokens := b.counter.Count(history[start-1].Content)
		if tokens > remaining {
			break
		}
		remaining -= tokens
		start--
	}
	messages := append([]adapter.Message(nil), history[start:]...)

	return &Built{
		Request: adapter.CompletionRequest{
			SystemPrompt: strings.Join(sections, "\n"),
			Messages:     messages,
			UserMessage:  opts.Message,
		},
		TokensUsed:  opts.MaxTokens - remaining,
		HistoryUsed: len(messages),
		Sections:    used,
	}
}
