package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// Check statuses.
const (
	statusExists    = "exists"
	statusNotExists = "not exists"
)

var checkJSON bool

// now is replaced in tests.
var now = time.Now

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Check whether a page was saved",
	Long: `Reports whether a page is stored, using the same URL normalisation as save.

Prints the normalised URL, the time of the check and "exists" or "not exists".`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	key, err := domain.NormalizeURL(args[0])
	if err != nil {
		return err
	}
	exists, err := ingestService.Check(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	res := checkResult{URL: key, Status: statusNotExists, CheckedAt: now().UTC()}
	if exists {
		res.Status = statusExists
	}

	if checkJSON {
		return printJSON(cmd, res)
	}
	cmd.Printf("%s\t%s\t%s\n", res.URL, res.CheckedAt.Format(time.RFC3339), res.Status)
	return nil
}
