package cli

import (
	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/mcp"
	"github.com/innovaplus/innova/internal/memory"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the assistant as MCP tools over stdio",
		Long: `Expose send_message, list_content, clear_history and recall to an MCP host.

Example host configuration:
  {"mcpServers": {"innova": {"command": "innova", "args": ["mcp"]}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{withEngine: true})
			if err != nil {
				return err
			}
			defer a.Close()
			a.watchConfig(cmd.Context())

			mcp.Version = version
			cfg := a.holder.Get()
			srv := mcp.NewServer(a.engine, a.store, a.recaller, memory.RecallOptions{
				TopK:                cfg.Memory.RecallTopK,
				SimilarityThreshold: cfg.Memory.SimilarityThreshold,
			}, logger)
			return srv.ServeStdio()
		},
	}
}
