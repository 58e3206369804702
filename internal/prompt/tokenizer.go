// Package prompt builds token-budget-aware base-response prompts from session
// memory and conversation history.
package prompt

import (
	"fmt"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter counts and truncates prompt tokens.
type Counter interface {
	Count(s string) int
	Truncate(s string, maxTokens int) string
}

// Tokenizer wraps tiktoken for approximate token counting.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer using the cl100k_base encoding, a close
// enough approximation for every supported provider.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding: %w", err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the approximate number of tokens in s.
func (t *Tokenizer) Count(s string) int {
	return len(t.enc.Encode(s, nil, nil))
}

// Truncate truncates s to at most maxTokens tokens, returning the result.
func (t *Tokenizer) Truncate(s string, maxTokens int) string {
	tokens := t.enc.Encode(s, nil, nil)
	if len(tokens) <= maxTokens {
		return s
	}
	return t.enc.Decode(tokens[:maxTokens])
}

// Estimator counts four characters per token. It stands in for Tokenizer
// when the encoding ranks cannot be loaded.
type Estimator struct{}

func (Estimator) Count(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

func (Estimator) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxTokens*4 {
		return s
	}
	return string(r[:maxTokens*4])
}

// NewCounter returns a Tokenizer, or an Estimator when tiktoken is unavailable.
func NewCounter() Counter {
	if t, err := NewTokenizer(); err == nil {
		return t
	}
	return Estimator{}
}
