package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hask/internal/core/domain"
)

var (
	searchLimit       int
	searchCandidates  int
	searchSummaries   int
	searchNoSummaries bool
	searchJSON        bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search saved pages",
	Long: `Finds saved pages by meaning rather than keywords.

The query is embedded and compared against every saved chunk; the best
candidates are reranked and the top pages are summarised.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of pages (0 = settings default)")
	searchCmd.Flags().IntVar(&searchCandidates, "candidates", 0, "chunks fetched before reranking (0 = settings default)")
	searchCmd.Flags().IntVar(&searchSummaries, "summaries", 0, "pages to summarise (0 = settings default)")
	searchCmd.Flags().BoolVar(&searchNoSummaries, "no-summaries", false, "skip the summariser")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

type searchResult struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Score       float64  `json:"score"`
	Similarity  float64  `json:"similarity"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
	Summary     string   `json:"summary"`
	Summarised  bool     `json:"summarised"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	opts := domain.QueryOptions{
		Candidates: searchCandidates,
		Limit:      searchLimit,
		Summaries:  searchSummaries,
	}
	if searchNoSummaries {
		opts.Summaries = -1
	}

	results, err := queryService.Query(cmd.Context(), strings.Join(args, " "), opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	out := make([]searchResult, len(results))
	for i := range results {
		out[i] = searchResult{
			URL:         results[i].PageURL,
			Title:       results[i].Title,
			Score:       results[i].Score,
			Similarity:  results[i].Similarity,
			RerankScore: results[i].RerankScore,
			Summary:     results[i].Summary,
			Summarised:  results[i].Summarised,
		}
	}
	return printJSON(cmd, out)
}

func outputSearchTable(cmd *cobra.Command, results []domain.QueryResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = results[i].PageURL
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Score)
		cmd.Printf("      %s\n", results[i].PageURL)
		if results[i].Summary != "" {
			cmd.Printf("      %s\n", results[i].Summary)
		}
		cmd.Println()
	}
	return nil
}
