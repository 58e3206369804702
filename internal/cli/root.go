// Package cli defines the Cobra command tree for the innova CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/logging"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	flagConfig  string
	flagVerbose bool
	flagLogJSON bool

	// logger is built in PersistentPreRunE; a no-op until then.
	logger = zap.NewNop()
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "innova",
	Short: "InnovA+, a multi-capability AI assistant with session memory",
	Long: `InnovA+ answers each message with a base reply and, when the message calls
for it, runs specialized capabilities: research with sources, analysis,
images, charts, code, VR scenes and documents. It remembers what it
generated, so follow-up messages like "make the background blue" modify
the right artifact instead of starting over.

Run 'innova setup' once, then 'innova chat' to start talking.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Options{Verbose: flagVerbose, JSON: flagLogJSON})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/innova/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging and prompt diagnostics")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "write logs as JSON")

	rootCmd.AddCommand(
		newChatCmd(),
		newAskCmd(),
		newServeCmd(),
		newMCPCmd(),
		newHistoryCmd(),
		newStatusCmd(),
		newClearCmd(),
		newExportCmd(),
		newRecallCmd(),
		newCapabilityCmd(),
		newSetupCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("innova %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
