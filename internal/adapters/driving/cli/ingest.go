package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/core/ports/driving"
)

var (
	ingestWorkers int
	ingestKB      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents into the corpus",
	Long: `Ingests a file or directory into the knowledge corpus.

Directories are walked recursively; files with unsupported extensions are
skipped. Fragments already present in the corpus (by content hash) are
deduplicated and never re-embedded.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "concurrent documents (0 = auto)")
	ingestCmd.Flags().StringVar(&ingestKB, "kb", "", "knowledge base to stamp fragments with")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc := ingestor
	if ingestorFor != nil {
		svc = ingestorFor(ingestWorkers, ingestKB)
	}
	if svc == nil {
		return errors.New("ingestion not configured; run 'quarry config' to set an embedding provider")
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	ctx := cmd.Context()

	if !info.IsDir() {
		report, err := svc.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		printIngestReport(cmd, 1, report)
		return nil
	}

	paths, err := collectSupportedFiles(path)
	if err != nil {
		return fmt.Errorf("walking %s: %w", path, err)
	}
	if len(paths) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	cmd.Printf("Ingesting %d files...\n", len(paths))
	report, err := svc.IngestBatch(ctx, paths)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printIngestReport(cmd, len(paths), report)
	return nil
}

// collectSupportedFiles walks dir and returns files the loader registry
// can handle.
func collectSupportedFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if loaderRegistry != nil && !loaderRegistry.Supports(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func printIngestReport(cmd *cobra.Command, files int, report *driving.IngestReport) {
	cmd.Println()
	cmd.Printf("Ingested %d files:\n", files)
	cmd.Printf("  Fragments emitted: %d\n", report.FragmentsEmitted)
	cmd.Printf("  New fragments:     %d\n", report.FragmentsNew)
	cmd.Printf("  Duplicates:        %d\n", report.FragmentsEmitted-report.FragmentsNew)
	cmd.Printf("  Vectors indexed:   %d\n", report.VectorsIndexed)
	if report.Errors > 0 {
		cmd.Printf("  Failed documents:  %d\n", report.Errors)
	}
}
