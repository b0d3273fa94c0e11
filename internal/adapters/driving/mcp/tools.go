package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// Check statuses.
const (
	StatusExists    = "exists"
	StatusNotExists = "not exists"
)

// Save statuses.
const (
	SaveCreated   = "created"
	SaveUpdated   = "updated"
	SaveUnchanged = "unchanged"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"what to look for in previously visited pages"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of pages to return (default from settings)"`
	Summaries int    `json:"summaries,omitempty" jsonschema:"how many top pages to summarise (default from settings)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Summary    string  `json:"summary"`
	Summarised bool    `json:"summarised"`
}

// SaveInput is the input schema for the save_url tool.
type SaveInput struct {
	URL     string `json:"url" jsonschema:"the page address"`
	Title   string `json:"title,omitempty" jsonschema:"the page title; empty keeps a stored title"`
	Content string `json:"content" jsonschema:"the extracted page text"`
}

// SaveOutput is the output schema for the save_url tool.
type SaveOutput struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	ChunksIndexed int       `json:"chunks_indexed"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// CheckInput is the input schema for the check_url tool.
type CheckInput struct {
	URL string `json:"url" jsonschema:"the page address to look up"`
}

// CheckOutput is the output schema for the check_url tool.
type CheckOutput struct {
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search previously visited web pages by meaning",
	}, s.handleSearch)

	if s.ports.Ingest == nil {
		return
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "save_url",
		Description: "Save a visited page and its text so it can be found later",
	}, s.handleSave)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_url",
		Description: "Check whether a page has already been saved",
	}, s.handleCheck)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.QueryOptions{Limit: input.Limit, Summaries: input.Summaries}
	results, err := s.ports.Query.Query(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			URL:        results[i].PageURL,
			Title:      results[i].Title,
			Score:      results[i].Score,
			Summary:    results[i].Summary,
			Summarised: results[i].Summarised,
		}
	}

	return nil, output, nil
}

// handleSave handles the save_url tool invocation.
func (s *Server) handleSave(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveInput,
) (*mcp.CallToolResult, SaveOutput, error) {
	report, err := s.ports.Ingest.Save(ctx, domain.SaveRequest{
		URL:     input.URL,
		Title:   input.Title,
		Content: input.Content,
	})
	if err != nil {
		return nil, SaveOutput{}, err
	}

	return nil, SaveOutput{
		URL:           report.Page.URL,
		Title:         report.Page.Title,
		Status:        saveStatus(report),
		ChunksIndexed: report.ChunksIndexed,
		FetchedAt:     report.Page.FetchedAt,
	}, nil
}

// handleCheck handles the check_url tool invocation.
func (s *Server) handleCheck(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CheckInput,
) (*mcp.CallToolResult, CheckOutput, error) {
	key, err := domain.NormalizeURL(input.URL)
	if err != nil {
		return nil, CheckOutput{}, err
	}
	exists, err := s.ports.Ingest.Check(ctx, key)
	if err != nil {
		return nil, CheckOutput{}, err
	}

	status := StatusNotExists
	if exists {
		status = StatusExists
	}
	return nil, CheckOutput{URL: key, Status: status, CheckedAt: s.now().UTC()}, nil
}

func saveStatus(r *domain.IngestReport) string {
	switch {
	case r.Created:
		return SaveCreated
	case r.Skipped:
		return SaveUnchanged
	default:
		return SaveUpdated
	}
}
