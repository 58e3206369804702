// Package mcp exposes the assistant to MCP hosts over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/turn"
)

// Version is reported to MCP hosts.
var Version = "dev"

// Turns is the part of the turn engine the tools drive. *turn.Engine implements it.
type Turns interface {
	Handle(ctx context.Context, message string) (*turn.Reply, error)
	ClearHistory() error
}

// Recaller finds past content similar to a query. *memory.Recaller implements it.
type Recaller interface {
	Recall(ctx context.Context, query string, opts memory.RecallOptions) ([]memory.RankedEntry, error)
}

// Server holds the tool dependencies.
type Server struct {
	turns    Turns
	store    *memory.Store
	recaller Recaller
	recall   memory.RecallOptions
	logger   *zap.Logger
}

// NewServer creates a Server. recaller may be nil, which disables the recall tool's results.
func NewServer(turns Turns, store *memory.Store, recaller Recaller, recall memory.RecallOptions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{turns: turns, store: store, recaller: recaller, recall: recall, logger: logger}
}

// MCPServer builds the MCP server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(
		"innova",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("InnovA+ answers messages with research, analysis, images, charts, code, VR scenes "+
			"and documents, and remembers what it generated. Use send_message to talk to it; follow-up messages "+
			"can modify recent content."),
	)

	srv.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to the assistant and return its reply with any generated content."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user message")),
	), s.handleSendMessage)

	srv.AddTool(mcp.NewTool("list_content",
		mcp.WithDescription("List content generated this session, newest last."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 10)")),
	), s.handleListContent)

	srv.AddTool(mcp.NewTool("clear_history",
		mcp.WithDescription("Forget the conversation and generated content. Capability preferences are kept."),
	), s.handleClearHistory)

	srv.AddTool(mcp.NewTool("recall",
		mcp.WithDescription("Find previously generated content similar to a query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look for")),
		mcp.WithNumber("top_k", mcp.Description("Maximum number of results")),
	), s.handleRecall)

	return srv
}

// ServeStdio serves the tools over stdin/stdout until the host disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting on stdio")
	return server.ServeStdio(s.MCPServer())
}
