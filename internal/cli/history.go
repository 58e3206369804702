package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/capability"
	"github.com/innovaplus/innova/internal/llmtext"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		show  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generated content, newest last",
		Long: `List the content generated this session with its id, kind and prompt.

Examples:
  innova history
  innova history --limit 5
  innova history --show 0192a4c3-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if show != "" {
				entry, ok := a.store.FindEntry(show)
				if !ok {
					return fmt.Errorf("no content with id %q", show)
				}
				result, err := capability.Decode(entry.Kind, entry.Result)
				if err != nil {
					return err
				}
				fmt.Println(a.renderer().Result(result))
				return nil
			}

			entries := a.store.ContentHistory()
			if len(entries) == 0 {
				fmt.Println("No content generated yet.")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			for _, e := range entries {
				fmt.Printf("%s  %-9s %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Kind, llmtext.Truncate(e.OriginalPrompt, 60))
				fmt.Printf("  id: %s", e.ID)
				if n := len(e.ModificationHistory); n > 0 {
					fmt.Printf(" | revisions: %d", n)
				}
				if e.IsModification() {
					fmt.Print(" | modification")
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last N entries")
	cmd.Flags().StringVar(&show, "show", "", "render the entry with this id")
	return cmd
}
