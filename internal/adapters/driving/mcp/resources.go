package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for Quarry resources.
const uriScheme = "quarry://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing ingested documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all documents in the knowledge corpus",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a document's fragments.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/fragments",
		Name:        "document-fragments",
		Description: "Knowledge fragments chunked from a specific document",
		MIMEType:    "application/json",
	}, s.handleFragmentsResource)
}

// handleDocumentsResource returns a list of all ingested documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ledger == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	docs, err := s.ports.Ledger.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID            int64  `json:"id"`
		Path          string `json:"path"`
		Title         string `json:"title"`
		SourceType    string `json:"source_type"`
		FragmentCount int    `json:"fragment_count"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:            docs[i].ID,
			Path:          docs[i].Path,
			Title:         docs[i].Title,
			SourceType:    docs[i].SourceType,
			FragmentCount: docs[i].FragmentCount,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleFragmentsResource returns the fragments of a specific document.
func (s *Server) handleFragmentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ledger == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docID, ok := extractDocumentID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	frags, err := s.ports.Ledger.ListFragments(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("listing fragments: %w", err)
	}

	type fragInfo struct {
		Ordinal int      `json:"ordinal"`
		Content string   `json:"content"`
		Tags    []string `json:"tags,omitempty"`
		Split   string   `json:"split"`
	}

	infos := make([]fragInfo, len(frags))
	for i := range frags {
		infos[i] = fragInfo{
			Ordinal: frags[i].Ordinal,
			Content: frags[i].Content,
			Tags:    frags[i].Tags,
			Split:   string(frags[i].Split),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling fragments: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID parses a URI like quarry://documents/{documentId}/fragments.
func extractDocumentID(uri string) (int64, bool) {
	const prefix = uriScheme + "documents/"
	const suffix = "/fragments"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return 0, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
