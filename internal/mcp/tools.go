package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/llmtext"
	"github.com/innovaplus/innova/internal/turn"
)

// artifactExcerpt caps each artifact body in send_message output, in runes.
const artifactExcerpt = 2000

func (s *Server) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	reply, err := s.turns.Handle(ctx, message)
	switch {
	case errors.Is(err, turn.ErrEmptyMessage):
		return mcp.NewToolResultError("message is empty"), nil
	case errors.Is(err, turn.ErrBusy):
		return mcp.NewToolResultError("a message is already being processed; try again shortly"), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("failed to handle message: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(reply.Text)
	for _, a := range reply.Artifacts {
		fmt.Fprintf(&sb, "\n\n## %s (id: %s)\n\n", a.Capability, a.EntryID)
		sb.WriteString(llmtext.Truncate(capability.Text(a.Result), artifactExcerpt))
	}
	if reply.Failed {
		return mcp.NewToolResultError(sb.String()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleListContent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	entries := s.store.ContentHistory()
	if len(entries) == 0 {
		return mcp.NewToolResultText("No content generated yet."), nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] %s: %s\n  id: %s", e.Timestamp.Format("2006-01-02 15:04"), e.Kind, e.OriginalPrompt, e.ID)
		if n := len(e.ModificationHistory); n > 0 {
			fmt.Fprintf(&sb, " | revisions: %d", n)
		}
		sb.WriteString("\n\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleClearHistory(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.turns.ClearHistory(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear history: %v", err)), nil
	}
	return mcp.NewToolResultText("History cleared. Capability preferences were kept."), nil
}

func (s *Server) handleRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	if s.recaller == nil {
		return mcp.NewToolResultError("recall is not available"), nil
	}
	opts := s.recall
	opts.TopK = req.GetInt("top_k", opts.TopK)

	ranked, err := s.recaller.Recall(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
	}
	if len(ranked) == 0 {
		return mcp.NewToolResultText("No results found."), nil
	}

	var sb strings.Builder
	for _, r := range ranked {
		fmt.Fprintf(&sb, "- [%s] %s (id: %s, score: %.2f)\n", r.Kind, r.OriginalPrompt, r.ID, r.FinalScore)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
