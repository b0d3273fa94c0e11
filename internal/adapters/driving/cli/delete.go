package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hask/internal/core/domain"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <url>",
	Aliases: []string{"rm"},
	Short:   "Forget a saved page",
	Long:    `Removes a page, its chunks and their vectors.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	err := ingestService.Delete(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("page not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
