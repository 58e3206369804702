package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/config"
	"github.com/innovaplus/innova/internal/memory"
)

func newCapabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capability",
		Short: "Switch capabilities on or off",
		Long: `Capabilities that are switched off are never dispatched, even when a message
asks for them. A running chat or server picks the change up on its next turn.

Examples:
  innova capability disable vr
  innova capability enable image`,
	}
	cmd.AddCommand(toggleCmd("enable", true), toggleCmd("disable", false))
	return cmd
}

func toggleCmd(use string, on bool) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <capability>",
		Short:     fmt.Sprintf("%s a capability", use),
		Args:      cobra.ExactArgs(1),
		ValidArgs: capabilityNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Capabilities.Set(memory.Capability(args[0]), on); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("%s %sd.\n", args[0], use)
			return nil
		},
	}
}

func capabilityNames() []string {
	names := make([]string, len(memory.Capabilities))
	for i, c := range memory.Capabilities {
		names[i] = string(c)
	}
	return names
}
