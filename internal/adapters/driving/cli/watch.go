package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/quarry-cli/internal/logger"
)

var (
	watchKB       string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and ingest changed files",
	Long: `Watches a directory tree and re-ingests supported files as they are
created or modified. The content-hash ledger keeps unchanged fragments
from being re-embedded, so repeated saves are cheap.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchKB, "kb", "", "knowledge base to ingest into")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before ingesting a changed file")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc := ingestor
	if ingestorFor != nil {
		svc = ingestorFor(0, watchKB)
	}
	if svc == nil {
		return errors.New("ingestion not configured; run 'quarry config' to set an embedding provider")
	}

	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch target must be a directory: %s", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchTree(watcher, root); err != nil {
		return err
	}

	cmd.Printf("Watching %s (ctrl+c to stop)\n", root)

	ctx := cmd.Context()
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)

	ingestPath := func(path string) {
		report, ierr := svc.IngestFile(ctx, path)
		if ierr != nil {
			cmd.Printf("  %s: %v\n", path, ierr)
			return
		}
		cmd.Printf("  %s: %d fragments (%d new)\n", path, report.FragmentsEmitted, report.FragmentsNew)
	}

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[path]; ok {
			timer.Reset(watchDebounce)
			return
		}
		pending[path] = time.AfterFunc(watchDebounce, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			ingestPath(path)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if fi, serr := os.Stat(event.Name); serr == nil && fi.IsDir() {
				if event.Op.Has(fsnotify.Create) {
					if werr := addWatchTree(watcher, event.Name); werr != nil {
						logger.Warn("failed to watch new directory %s: %v", event.Name, werr)
					}
				}
				continue
			}
			if loaderRegistry != nil && !loaderRegistry.Supports(event.Name) {
				continue
			}
			schedule(event.Name)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", werr)
		}
	}
}

// addWatchTree registers path and every directory below it.
func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		if werr := watcher.Add(path); werr != nil {
			return fmt.Errorf("failed to watch %s: %w", path, werr)
		}
		return nil
	})
}
