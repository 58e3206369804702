package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/config"
	"github.com/innovaplus/innova/internal/memory"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, capability toggles and memory counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			printStatus(a.holder.Get(), a)
			return nil
		},
	}
}

func printStatus(cfg config.Config, a *app) {
	model := cfg.CompletionModel()
	if model == "" {
		model = "default"
	}
	fmt.Printf("Provider:     %s (%s)\n", cfg.Provider, model)
	fmt.Printf("Language:     %s\n", cfg.Language)
	fmt.Printf("Images:       %s, %s\n", cfg.Image.Provider, cfg.Image.AspectRatio)

	var on, off []string
	for _, c := range memory.Capabilities {
		if cfg.Capabilities.Enabled(c) {
			on = append(on, string(c))
		} else {
			off = append(off, string(c))
		}
	}
	fmt.Printf("Enabled:      %s\n", joinOrNone(on))
	if len(off) > 0 {
		fmt.Printf("Disabled:     %s\n", strings.Join(off, ", "))
	}

	snap := a.store.Snapshot()
	fmt.Printf("Usage:        %d capability calls\n", len(snap.FunctionUsage))
	fmt.Printf("Content:      %d entries, %d modifications\n", len(snap.ContentHistory), len(snap.ModificationLog))

	var prefs []string
	for _, c := range snap.PreferenceOrder {
		prefs = append(prefs, fmt.Sprintf("%s %d", c, snap.PreferenceCounts[c]))
	}
	fmt.Printf("Preferences:  %s\n", joinOrNone(prefs))

	recall := "word overlap"
	if a.database.VectorsAvailable() && cfg.Embedder != "" {
		recall = "vectors (" + cfg.Embedder + ")"
	}
	fmt.Printf("Recall:       %s\n", recall)
	if a.engine != nil {
		fmt.Printf("Conversation: %d messages\n", len(a.engine.History()))
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
