package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export generated content, usage counts and preferences",
		Long: `Render session memory as markdown, JSON or YAML.
Output is written to stdout unless --output is given.

Examples:
  innova export > session.md
  innova export --format json --output session.json
  innova export --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, ok := export.Get(strings.ToLower(format))
			if !ok {
				return fmt.Errorf("unknown format %q; valid formats: %s",
					format, strings.Join(export.ValidFormats(), ", "))
			}

			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := exporter.Export(export.FromSnapshot(a.store.Snapshot(), time.Now()))
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if output == "" {
				_, err = os.Stdout.WriteString(out)
				return err
			}
			if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "output format: "+strings.Join(export.ValidFormats(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
