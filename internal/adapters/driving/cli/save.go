package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/hask/internal/core/domain"
)

var (
	saveTitle string
	saveFile  string
	saveJSON  bool
)

var saveCmd = &cobra.Command{
	Use:   "save <url>",
	Short: "Save a visited page",
	Long: `Saves the text of a visited page so it can be searched later.

The page text is read from --file, or from stdin when it is piped.
Saving a page again replaces its chunks only when the text changed.

Examples:
  hask save https://go.dev/blog/pipelines --title "Pipelines" --file page.txt
  lynx -dump https://example.com | hask save https://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVarP(&saveTitle, "title", "t", "", "page title")
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "", "read page text from file (- for stdin)")
	saveCmd.Flags().BoolVar(&saveJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(saveCmd)
}

// saveResult is the JSON shape of a save.
type saveResult struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	Stage         string    `json:"stage"`
	ChunksIndexed int       `json:"chunks_indexed"`
	ChunksRemoved int       `json:"chunks_removed"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func runSave(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	content, err := readContent(cmd)
	if err != nil {
		return err
	}

	report, err := ingestService.Save(cmd.Context(), domain.SaveRequest{
		URL:     args[0],
		Title:   saveTitle,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}

	res := saveResult{
		URL:           report.Page.URL,
		Title:         report.Page.Title,
		Status:        saveStatus(report),
		Stage:         report.Stage.String(),
		ChunksIndexed: report.ChunksIndexed,
		ChunksRemoved: report.ChunksRemoved,
		FetchedAt:     report.Page.FetchedAt.UTC(),
	}

	if saveJSON {
		return printJSON(cmd, res)
	}

	cmd.Printf("Saved %s (%s, %d chunks indexed)\n", res.URL, res.Status, res.ChunksIndexed)
	return nil
}

// readContent returns the page text from --file or piped stdin.
func readContent(cmd *cobra.Command) (string, error) {
	if saveFile != "" && saveFile != "-" {
		data, err := os.ReadFile(saveFile)
		if err != nil {
			return "", fmt.Errorf("reading page text: %w", err)
		}
		return string(data), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && saveFile == "" && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading page text: %w", err)
	}
	return string(data), nil
}

func saveStatus(r *domain.IngestReport) string {
	switch {
	case r.Created:
		return "created"
	case r.Skipped:
		return "unchanged"
	default:
		return "updated"
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
