package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	req := &mcp.ReadResourceRequest{}
	req.Params = &mcp.ReadResourceParams{URI: uri}
	return req
}

func TestHandleDocumentsResource(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()

	docID, err := ledger.UpsertDocument(ctx, &domain.Document{
		Path:       "guide.md",
		Title:      "Guide",
		SourceType: "markdown",
	})
	require.NoError(t, err)

	frag := domain.Fragment{DocumentID: docID, Ordinal: 0, Content: "Fragment text", Tags: []string{"guide"}}
	_, _, err = ledger.InsertFragmentIfNew(ctx, &frag)
	require.NoError(t, err)

	server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Ledger: ledger})
	require.NoError(t, err)

	result, err := server.handleDocumentsResource(ctx, readRequest("quarry://documents"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "guide.md", docs[0]["path"])
	assert.Equal(t, "Guide", docs[0]["title"])
}

func TestHandleDocumentsResourceWithoutLedger(t *testing.T) {
	server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
	require.NoError(t, err)

	result, err := server.handleDocumentsResource(context.Background(), readRequest("quarry://documents"))
	require.NoError(t, err)
	assert.Equal(t, "[]", result.Contents[0].Text)
}

func TestHandleFragmentsResource(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()

	docID, err := ledger.UpsertDocument(ctx, &domain.Document{Path: "guide.md", Title: "Guide"})
	require.NoError(t, err)

	frag := domain.Fragment{DocumentID: docID, Ordinal: 0, Content: "Fragment text", Split: domain.SplitCharacter}
	_, _, err = ledger.InsertFragmentIfNew(ctx, &frag)
	require.NoError(t, err)

	server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Ledger: ledger})
	require.NoError(t, err)

	uri := "quarry://documents/1/fragments"
	result, err := server.handleFragmentsResource(ctx, readRequest(uri))
	require.NoError(t, err)

	var frags []map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &frags))
	require.Len(t, frags, 1)
	assert.Equal(t, "Fragment text", frags[0]["content"])
	assert.Equal(t, "character", frags[0]["split"])
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		uri    string
		wantID int64
		wantOK bool
	}{
		{"quarry://documents/42/fragments", 42, true},
		{"quarry://documents/abc/fragments", 0, false},
		{"quarry://documents/42", 0, false},
		{"other://documents/42/fragments", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, ok := extractDocumentID(tt.uri)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
