package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/hask/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for Hask resources.
	uriScheme = "hask://"

	pagesPrefix = uriScheme + "pages/"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Pages == nil {
		return
	}

	// Static resource for listing pages.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "pages",
		Name:        "pages",
		Description: "Every saved page, most recently visited first",
		MIMEType:    "application/json",
	}, s.handlePagesResource)

	// Template for page content. The page URL is path-escaped.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: pagesPrefix + "{pageUrl}",
		Name:        "page-content",
		Description: "Stored text of a saved page",
		MIMEType:    "text/plain",
	}, s.handlePageContentResource)
}

// PageURI returns the resource URI for a page URL.
func PageURI(pageURL string) string {
	return pagesPrefix + url.PathEscape(pageURL)
}

// handlePagesResource returns a list of all saved pages.
func (s *Server) handlePagesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	pages, err := s.ports.Pages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	type pageInfo struct {
		URL       string    `json:"url"`
		Title     string    `json:"title"`
		FetchedAt time.Time `json:"fetched_at"`
		URI       string    `json:"uri"`
	}

	infos := make([]pageInfo, len(pages))
	for i := range pages {
		infos[i] = pageInfo{
			URL:       pages[i].URL,
			Title:     pages[i].Title,
			FetchedAt: pages[i].FetchedAt,
			URI:       PageURI(pages[i].URL),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling pages: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePageContentResource returns the stored text of a page.
func (s *Server) handlePageContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	pageURL := extractPageURL(req.Params.URI)
	if pageURL == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	page, err := s.ports.Pages.Get(ctx, pageURL)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting page: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     page.Content,
		}},
	}, nil
}

// extractPageURL extracts the page URL from a URI like hask://pages/{pageUrl}.
func extractPageURL(uri string) string {
	if !strings.HasPrefix(uri, pagesPrefix) {
		return ""
	}
	escaped := strings.TrimPrefix(uri, pagesPrefix)
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return ""
	}
	return unescaped
}
