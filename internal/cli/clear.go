package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget generated content and usage; keep capability preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			a.store.Clear()
			a.recaller.Reset()
			fmt.Println("History cleared. Capability preferences were kept.")
			return nil
		},
	}
}
