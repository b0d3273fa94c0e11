package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hask/internal/core/domain"
)

var pagesJSON bool

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List saved pages",
	Long:  `Lists saved pages, most recently visited first.`,
	Args:  cobra.NoArgs,
	RunE:  runPagesList,
}

var pagesShowCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Print the stored text of a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runPagesShow,
}

func init() {
	pagesCmd.PersistentFlags().BoolVar(&pagesJSON, "json", false, "output as JSON")
	pagesCmd.AddCommand(pagesShowCmd)
	rootCmd.AddCommand(pagesCmd)
}

type pageInfo struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	FetchedAt time.Time `json:"fetched_at"`
	Content   string    `json:"content,omitempty"`
}

func toPageInfo(p *domain.Page) pageInfo {
	return pageInfo{
		URL:       p.URL,
		Title:     p.Title,
		CreatedAt: p.CreatedAt.UTC(),
		FetchedAt: p.FetchedAt.UTC(),
	}
}

func runPagesList(cmd *cobra.Command, _ []string) error {
	if pageService == nil {
		return errors.New("page service not configured")
	}

	pages, err := pageService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	if pagesJSON {
		out := make([]pageInfo, len(pages))
		for i := range pages {
			out[i] = toPageInfo(&pages[i])
		}
		return printJSON(cmd, out)
	}

	if len(pages) == 0 {
		cmd.Println("No pages saved yet.")
		return nil
	}
	for i := range pages {
		title := pages[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("%s  %s\n", pages[i].FetchedAt.Local().Format("2006-01-02 15:04"), title)
		cmd.Printf("                  %s\n", pages[i].URL)
	}
	cmd.Printf("\n%d pages\n", len(pages))
	return nil
}

func runPagesShow(cmd *cobra.Command, args []string) error {
	if pageService == nil {
		return errors.New("page service not configured")
	}

	page, err := pageService.Get(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("page not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get page: %w", err)
	}

	if pagesJSON {
		info := toPageInfo(page)
		info.Content = page.Content
		return printJSON(cmd, info)
	}

	cmd.Printf("%s\n%s\n\n", page.Title, page.URL)
	cmd.Println(page.Content)
	return nil
}
