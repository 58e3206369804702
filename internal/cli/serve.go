package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/api"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for the browser front end",
		Long: `Start an HTTP server exposing the assistant:

  GET    /health
  POST   /api/messages        {"message": "..."}
  GET    /api/content
  GET    /api/content/{id}
  GET    /api/memory/summary?q=
  DELETE /api/memory

The config file is watched; capability toggles apply to the next message.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{withEngine: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.watchConfig(ctx)

			if addr == "" {
				addr = a.holder.Get().Server.Addr
			}
			cmd.PrintErrf("Listening on http://%s\n", addr)
			return api.Serve(ctx, addr, api.NewRouter(a.engine, a.store, logger), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
