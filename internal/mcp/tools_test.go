package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/turn"
)

type fakeTurns struct {
	reply   *turn.Reply
	err     error
	cleared int
}

func (f *fakeTurns) Handle(context.Context, string) (*turn.Reply, error) { return f.reply, f.err }

func (f *fakeTurns) ClearHistory() error {
	if f.err != nil {
		return f.err
	}
	f.cleared++
	return nil
}

type fakeRecaller struct {
	ranked []memory.RankedEntry
	opts   memory.RecallOptions
}

func (f *fakeRecaller) Recall(_ context.Context, _ string, opts memory.RecallOptions) ([]memory.RankedEntry, error) {
	f.opts = opts
	return f.ranked, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestSendMessage(t *testing.T) {
	turns := &fakeTurns{reply: &turn.Reply{
		Text: "Aquí tienes el código.",
		Artifacts: []turn.Artifact{{
			Capability: memory.CapCode,
			EntryID:    "e1",
			Result:     &capability.CodeResult{Content: "print(1)", Language: "python"},
		}},
	}}
	s := NewServer(turns, memory.NewStore(nil, nil), nil, memory.RecallOptions{}, nil)

	res, err := s.handleSendMessage(context.Background(), call(map[string]any{"message": "una calculadora"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "Aquí tienes el código.")
	assert.Contains(t, out, "## code (id: e1)")
	assert.Contains(t, out, "print(1)")
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		err  error
	}{
		{"missing", map[string]any{}, nil},
		{"busy", map[string]any{"message": "hola"}, turn.ErrBusy},
		{"empty", map[string]any{"message": " "}, turn.ErrEmptyMessage},
		{"other", map[string]any{"message": "hola"}, errors.New("boom")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(&fakeTurns{err: tc.err}, memory.NewStore(nil, nil), nil, memory.RecallOptions{}, nil)
			res, err := s.handleSendMessage(context.Background(), call(tc.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestSendMessageFailedTurn(t *testing.T) {
	s := NewServer(&fakeTurns{reply: &turn.Reply{Text: "Lo siento", Failed: true}}, memory.NewStore(nil, nil), nil, memory.RecallOptions{}, nil)
	res, err := s.handleSendMessage(context.Background(), call(map[string]any{"message": "hola"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Lo siento", text(t, res))
}

func TestListContent(t *testing.T) {
	store := memory.NewStore(nil, nil)
	s := NewServer(&fakeTurns{}, store, nil, memory.RecallOptions{}, nil)

	res, err := s.handleListContent(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Equal(t, "No content generated yet.", text(t, res))

	store.RecordContent(memory.KindCode, "calc", json.RawMessage(`{"content":"x"}`), nil)
	id := store.RecordContent(memory.KindImage, "gato", json.RawMessage(`{"url":"u"}`), nil)

	res, err = s.handleListContent(context.Background(), call(map[string]any{"limit": 1}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "image: gato")
	assert.Contains(t, out, id)
	assert.NotContains(t, out, "calc")
}

func TestClearHistory(t *testing.T) {
	turns := &fakeTurns{}
	s := NewServer(turns, memory.NewStore(nil, nil), nil, memory.RecallOptions{}, nil)
	res, err := s.handleClearHistory(context.Background(), call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 1, turns.cleared)
}

func TestRecall(t *testing.T) {
	rec := &fakeRecaller{ranked: []memory.RankedEntry{{
		ContentEntry: memory.ContentEntry{ID: "e1", Kind: memory.KindCode, OriginalPrompt: "una calculadora"},
		FinalScore:   0.63,
	}}}
	s := NewServer(&fakeTurns{}, memory.NewStore(nil, nil), rec, memory.RecallOptions{TopK: 5, SimilarityThreshold: 0.3}, nil)

	res, err := s.handleRecall(context.Background(), call(map[string]any{"query": "calculadora", "top_k": 2}))
	require.NoError(t, err)
	assert.Equal(t, "- [code] una calculadora (id: e1, score: 0.63)\n", text(t, res))
	assert.Equal(t, 2, rec.opts.TopK)
	assert.Equal(t, 0.3, rec.opts.SimilarityThreshold)
}

func TestRecallUnavailable(t *testing.T) {
	s := NewServer(&fakeTurns{}, memory.NewStore(nil, nil), nil, memory.RecallOptions{}, nil)
	res, err := s.handleRecall(context.Background(), call(map[string]any{"query": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
