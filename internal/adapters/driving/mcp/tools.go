package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find knowledge fragments"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of fragments to return (default 6)"`
	KB    string `json:"kb,omitempty" jsonschema:"restrict results to one knowledge base"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved fragment.
type SearchResultOutput struct {
	Title   string   `json:"title"`
	Path    string   `json:"path"`
	Ordinal int      `json:"ordinal"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Content string   `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string  `json:"question" jsonschema:"the question to answer from the corpus"`
	SessionID string  `json:"session_id,omitempty" jsonschema:"conversation session to continue; omit to start a new one"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"similarity distance cutoff for context retrieval"`
	KB        string  `json:"kb,omitempty" jsonschema:"restrict context to one knowledge base"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string          `json:"answer"`
	SessionID string          `json:"session_id"`
	Sources   []domain.Source `json:"sources"`
}

// TagSearchInput is the input schema for the tag_search tool.
type TagSearchInput struct {
	Query       string `json:"query" jsonschema:"text to match against the tag vocabulary"`
	TopTags     int    `json:"top_tags,omitempty" jsonschema:"maximum matched tags (default 3)"`
	LimitPerTag int    `json:"limit_per_tag,omitempty" jsonschema:"maximum fragments per matched tag (default 5)"`
}

// TagSearchOutput is the output schema for the tag_search tool.
type TagSearchOutput struct {
	MatchedTags []string             `json:"matched_tags"`
	Fragments   []SearchResultOutput `json:"fragments"`
	Message     string               `json:"message,omitempty"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Path string `json:"path" jsonschema:"path of the file to ingest into the corpus"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentsProcessed int `json:"documents_processed"`
	FragmentsNew       int `json:"fragments_new"`
	VectorsIndexed     int `json:"vectors_indexed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the knowledge corpus by semantic similarity",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using retrieved knowledge fragments",
	}, s.handleAsk)

	if s.ports.TagSearcher != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "tag_search",
			Description: "Find knowledge fragments by category tag",
		}, s.handleTagSearch)
	}

	if s.ports.Ingestor != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Ingest a local file into the knowledge corpus",
		}, s.handleIngest)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Retriever.Search(ctx, input.Query, domain.RetrievalOptions{
		K:       input.Limit,
		ScopeID: input.KB,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = toResultOutput(&results[i].Fragment, results[i].Score)
	}
	return nil, output, nil
}

// handleAsk handles the ask tool invocation. Conversations persist for the
// lifetime of the server process, keyed by session ID.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	sessionID, history := s.sessions.GetOrCreate(input.SessionID)

	result, err := s.ports.Retriever.Ask(ctx, history, input.Question, domain.RetrievalOptions{
		Threshold: input.Threshold,
		ScopeID:   input.KB,
	}, nil)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:    result.Answer,
		SessionID: sessionID,
		Sources:   result.Sources,
	}, nil
}

// handleTagSearch handles the tag_search tool invocation.
func (s *Server) handleTagSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TagSearchInput,
) (*mcp.CallToolResult, TagSearchOutput, error) {
	result, err := s.ports.TagSearcher.SearchByTag(ctx, input.Query, input.TopTags, input.LimitPerTag)
	if err != nil {
		return nil, TagSearchOutput{}, err
	}

	output := TagSearchOutput{
		MatchedTags: result.MatchedTags,
		Message:     result.Message,
		Fragments:   make([]SearchResultOutput, len(result.Fragments)),
	}
	for i := range result.Fragments {
		output.Fragments[i] = toResultOutput(&result.Fragments[i], 0)
	}
	return nil, output, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, errors.New("path is required")
	}

	report, err := s.ports.Ingestor.IngestFile(ctx, input.Path)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentsProcessed: report.DocumentsProcessed,
		FragmentsNew:       report.FragmentsNew,
		VectorsIndexed:     report.VectorsIndexed,
	}, nil
}

func toResultOutput(frag *domain.Fragment, score float64) SearchResultOutput {
	title, _ := frag.Metadata["title"].(string)
	path, _ := frag.Metadata["source"].(string)
	return SearchResultOutput{
		Title:   title,
		Path:    path,
		Ordinal: frag.Ordinal,
		Score:   score,
		Tags:    frag.Tags,
		Content: frag.Content,
	}
}
