// Package adapter provides a unified interface for completion, embedding and
// image providers.
package adapter

import (
	"context"
	"fmt"
	"strings"
)

// Provider name constants.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged conversation message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is a single token or error delivered during streaming.
type StreamChunk struct {
	Text  string
	Error error
}

// CompletionRequest holds the parameters for a completion call.
type CompletionRequest struct {
	SystemPrompt string
	Context      string
	// Messages are prior conversation turns sent before UserMessage.
	Messages    []Message
	UserMessage string
	Model       string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a single JSON object as the response body.
	JSON   bool
	Stream bool
}

// jsonInstruction is appended to the system prompt for providers without a
// native JSON response mode.
const jsonInstruction = "Respond with a single valid JSON object and nothing else."

// systemText joins the system prompt and injected context into one block.
func (r CompletionRequest) systemText(withJSONHint bool) string {
	var parts []string
	if r.SystemPrompt != "" {
		parts = append(parts, r.SystemPrompt)
	}
	if r.Context != "" {
		parts = append(parts, fmt.Sprintf("<context>\n%s\n</context>", r.Context))
	}
	if withJSONHint && r.JSON {
		parts = append(parts, jsonInstruction)
	}
	return strings.Join(parts, "\n\n")
}

// turns returns the conversation messages followed by the user message.
func (r CompletionRequest) turns() []Message {
	out := make([]Message, 0, len(r.Messages)+1)
	out = append(out, r.Messages...)
	if r.UserMessage != "" {
		out = append(out, Message{Role: RoleUser, Content: r.UserMessage})
	}
	return out
}

// ModelInfo describes the capabilities of a model.
type ModelInfo struct {
	Name               string
	Provider           string
	MaxContextWindow   int
	SupportsStreaming  bool
	SupportsJSON       bool
	EmbeddingDimension int // 0 if not an embedding model
}

// LLMAdapter is the common interface all provider adapters implement.
type LLMAdapter interface {
	// Complete sends a prompt and streams the response.
	Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Embed generates embeddings for a batch of texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Info returns metadata about the adapter/model.
	Info() ModelInfo
}

// Options selects and configures a provider.
type Options struct {
	Provider   string
	APIKey     string
	Model      string // completion model; provider default when empty
	EmbedModel string // used by Ollama
	OllamaHost string
}

// New constructs the LLMAdapter for the named provider.
func New(opts Options) (LLMAdapter, error) {
	switch opts.Provider {
	case ProviderClaude:
		return NewClaude(opts.APIKey, opts.Model), nil
	case ProviderOpenAI:
		return NewOpenAI(opts.APIKey, opts.Model), nil
	case ProviderGemini:
		return NewGemini(opts.APIKey, opts.Model), nil
	case ProviderOllama:
		host := opts.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		embed := opts.EmbedModel
		if embed == "" {
			embed = "nomic-embed-text"
		}
		return NewOllama(host, opts.Model, embed), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q; valid providers: claude, openai, gemini, ollama", opts.Provider)
	}
}

// Collect sends req and drains the stream into a single string.
func Collect(ctx context.Context, llm Completer, req CompletionRequest) (string, error) {
	ch, err := llm.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	var (
		sb       strings.Builder
		firstErr error
	)
	// Drain fully so the producer goroutine never blocks on send.
	for chunk := range ch {
		if chunk.Error != nil && firstErr == nil {
			firstErr = chunk.Error
		}
		sb.WriteString(chunk.Text)
	}
	if firstErr != nil {
		return "", firstErr
	}
	return sb.String(), nil
}
