// Package mcp provides an MCP (Model Context Protocol) server adapter for Hask.
// It lets AI assistants save pages into, and query, the local second brain.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
