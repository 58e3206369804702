package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/memory"
)

func newRecallCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Find previously generated content similar to a query",
		Long: `Rank past content by similarity to the query, weighted by how much it was
revised. Uses embeddings when an embedder and sqlite-vec are available and
falls back to word overlap otherwise.

Example:
  innova recall "gráfico de ventas"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.holder.Get()
			opts := memory.RecallOptions{TopK: cfg.Memory.RecallTopK, SimilarityThreshold: cfg.Memory.SimilarityThreshold}
			if topK > 0 {
				opts.TopK = topK
			}

			ranked, err := a.recaller.Recall(cmd.Context(), strings.Join(args, " "), opts)
			if err != nil {
				return err
			}
			if len(ranked) == 0 {
				fmt.Println("No matching content.")
				return nil
			}
			for _, r := range ranked {
				fmt.Printf("%.2f  %-9s %s\n      id: %s\n", r.FinalScore, r.Kind, r.OriginalPrompt, r.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum number of results (default from config)")
	return cmd
}
