// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Quarry. It enables AI assistants to search and question the local
// knowledge corpus.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retrieval service is not provided.
var ErrMissingRetriever = errors.New("mcp: retrieval service is required")
