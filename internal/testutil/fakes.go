// Package testutil provides scripted fakes of the completion and image
// services for package tests.
package testutil

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/innovaplus/innova/internal/adapter"
)

// ErrNoResponse is returned by LLM when its script runs out.
var ErrNoResponse = errors.New("fake llm: no scripted response")

// LLM is a scripted adapter.LLMAdapter. Respond, when set, answers every
// call; otherwise Responses are consumed in order and Err is returned once
// they run out (ErrNoResponse if Err is nil).
type LLM struct {
	Respond   func(req adapter.CompletionRequest) (string, error)
	Responses []string
	Err       error

	mu    sync.Mutex
	calls []adapter.CompletionRequest
}

// NewLLM returns an LLM that replies with responses in order.
func NewLLM(responses ...string) *LLM {
	return &LLM{Responses: responses}
}

// Failing returns an LLM whose every call fails with err.
func Failing(err error) *LLM {
	return &LLM{Err: err}
}

func (f *LLM) Complete(ctx context.Context, req adapter.CompletionRequest) (<-chan adapter.StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := f.next(req)
	if err != nil {
		return nil, err
	}
	ch := make(chan adapter.StreamChunk, 1)
	ch <- adapter.StreamChunk{Text: text}
	close(ch)
	return ch, nil
}

func (f *LLM) next(req adapter.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	respond := f.Respond
	if respond == nil {
		defer f.mu.Unlock()
		if len(f.Responses) == 0 {
			if f.Err != nil {
				return "", f.Err
			}
			return "", ErrNoResponse
		}
		text := f.Responses[0]
		f.Responses = f.Responses[1:]
		return text, nil
	}
	f.mu.Unlock()
	return respond(req)
}

func (f *LLM) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errors.New("fake llm: embeddings not supported")
}

func (f *LLM) Info() adapter.ModelInfo {
	return adapter.ModelInfo{Name: "fake", Provider: "fake", SupportsJSON: true}
}

// Calls returns the requests received so far.
func (f *LLM) Calls() []adapter.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adapter.CompletionRequest(nil), f.calls...)
}

// CallCount returns the number of Complete calls.
func (f *LLM) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Images is a fake adapter.ImageGenerator that records prompts.
type Images struct {
	Err error

	mu       sync.Mutex
	requests []adapter.ImageRequest
}

func (f *Images) Generate(ctx context.Context, req adapter.ImageRequest) (adapter.Image, error) {
	if err := ctx.Err(); err != nil {
		return adapter.Image{}, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Err != nil {
		return adapter.Image{}, f.Err
	}
	return adapter.Image{URL: "https://images.test/" + url.PathEscape(req.Prompt)}, nil
}

// Requests returns the image requests received so far.
func (f *Images) Requests() []adapter.ImageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adapter.ImageRequest(nil), f.requests...)
}
