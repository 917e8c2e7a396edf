package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage ingested documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE:  runDocsList,
}

var docsShowCmd = &cobra.Command{
	Use:   "show [id|path]",
	Short: "Show a document and its fragments",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [id|path]",
	Short: "Delete a document and its fragments from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsShowCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	if ledger == nil {
		return errors.New("ledger not configured")
	}

	docs, err := ledger.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	cmd.Printf("%-6s %-32s %-10s %-9s %s\n", "ID", "TITLE", "TYPE", "FRAGMENTS", "PATH")
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > 32 {
			title = title[:29] + "..."
		}
		cmd.Printf("%-6d %-32s %-10s %-9d %s\n", doc.ID, title, doc.SourceType, doc.FragmentCount, doc.Path)
	}

	total, err := ledger.CountFragments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count fragments: %w", err)
	}
	cmd.Printf("\n%d documents, %d fragments in the ledger.\n", len(docs), total)
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	if ledger == nil {
		return errors.New("ledger not configured")
	}

	ctx := cmd.Context()
	doc, err := resolveDocument(ctx, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Title:     %s\n", doc.Title)
	cmd.Printf("Path:      %s\n", doc.Path)
	cmd.Printf("Type:      %s\n", doc.SourceType)
	if len(doc.Tags) > 0 {
		cmd.Printf("Tags:      %s\n", strings.Join(doc.Tags, ", "))
	}
	cmd.Printf("Fragments: %d\n", doc.FragmentCount)
	cmd.Printf("Ingested:  %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))

	fragments, err := ledger.ListFragments(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to list fragments: %w", err)
	}

	cmd.Println()
	for i := range fragments {
		frag := &fragments[i]
		indexed := "pending"
		if frag.HasVector() {
			indexed = fmt.Sprintf("vector %d", *frag.VectorID)
		}
		cmd.Printf("  #%d (%s, %s)\n", frag.Ordinal, frag.Split, indexed)
		if len(frag.Tags) > 0 {
			cmd.Printf("      [%s]\n", strings.Join(frag.Tags, ", "))
		}
		cmd.Printf("      %s\n", truncateLine(frag.Content, 160))
	}
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if ledger == nil {
		return errors.New("ledger not configured")
	}

	doc, err := resolveDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := ledger.DeleteDocument(cmd.Context(), doc.ID); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", doc.ID, err)
	}

	cmd.Printf("Deleted document %d. Run 'quarry reindex' to reclaim its vectors.\n", doc.ID)
	return nil
}

// resolveDocument accepts either a numeric ledger ID or an ingested path.
func resolveDocument(ctx context.Context, raw string) (*domain.Document, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		doc, err := ledger.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load document %d: %w", id, err)
		}
		return doc, nil
	}

	doc, err := ledger.GetDocumentByPath(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %q: %w", raw, err)
	}
	return doc, nil
}
