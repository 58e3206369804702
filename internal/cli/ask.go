package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Long: `Run a single turn through the full pipeline: modification detection, intent
analysis, the base reply and every capability the message calls for.
Session memory is kept, so a later 'innova ask' can modify what this one made.

Examples:
  innova ask "Explica la fotosíntesis con un diagrama"
  innova ask "Write a Python script that renames photos by date"
  innova ask "make it skip hidden files" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			progress := newTurnProgress()
			a, err := openApp(appOptions{withEngine: true, onProgress: progress.Report})
			if err != nil {
				return err
			}
			defer a.Close()

			progress.Start("thinking")
			reply, err := a.engine.Handle(cmd.Context(), message)
			progress.Stop()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reply)
			}
			fmt.Println(a.renderer().Reply(reply))
			if reply.Failed {
				return fmt.Errorf("the reply could not be generated")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply as JSON")
	return cmd
}
