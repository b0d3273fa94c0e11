package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored chunks",
	Long: `Clears the vector index and replays every stored chunk embedding.
No provider is called; use it after switching index backends.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	n, err := indexService.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	stats, err := indexService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}

	cmd.Printf("Reindexed %d chunks\n", n)
	cmd.Printf("  Pages:   %d\n", stats.Pages)
	cmd.Printf("  Chunks:  %d\n", stats.Chunks)
	cmd.Printf("  Indexed: %d\n", stats.Indexed)
	return nil
}
