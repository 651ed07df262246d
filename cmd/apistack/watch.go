package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/apistack-go/internal/ctxlog"
	"github.com/lex00/apistack-go/internal/manifest"
)

// watchedExtensions are the file types that trigger a rebuild.
var watchedExtensions = map[string]bool{
	".ts":   true,
	".tsx":  true,
	".js":   true,
	".mjs":  true,
	".cjs":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".hcl":  true,
}

// newWatchCmd creates the "watch" subcommand for auto-rebuilding on file changes.
func newWatchCmd() *cobra.Command {
	var (
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-rebuild on handler source changes",
		Long: `Watch monitors the manifest and handler sources and rebuilds the
template whenever they change.

The watch command:
- Monitors the manifest directory and every handler source directory
- Reloads the manifest and recompiles every handler on each change
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    apistack watch
    apistack watch -o template.json
    apistack watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, watchOptions{
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for build (default: stdout)")

	return cmd
}

type watchOptions struct {
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch monitors sources and rebuilds on changes until the context ends.
func runWatch(cmd *cobra.Command, opts watchOptions) error {
	ctx := cmd.Context()
	status := cmd.ErrOrStderr()

	m, err := loadManifest()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	for _, dir := range watchDirs(m) {
		if err := addDirRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fmt.Fprintf(status, "Watching: %s\n", dir)
	}

	fmt.Fprintln(status, "Running initial build...")
	rebuild(ctx, cmd, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(status, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isWatched(event.Name, opts.outputFile) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(status, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(ctx, cmd, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ctxlog.FromContext(ctx).Warn("watch error", "error", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(status, "\nStopping watch...")
			return nil
		}
	}
}

// rebuild reloads the manifest and writes a fresh template. Failures are
// reported and the watch continues.
func rebuild(ctx context.Context, cmd *cobra.Command, opts watchOptions) {
	_, res, err := synthesize(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Build error: %v\n", err)
		return
	}
	if err := writeTemplate(cmd, res.Stack, res.Template, opts.outputFormat, opts.outputFile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Write error: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Build succeeded: %d resources\n", len(res.Template.Resources))
}

// watchDirs returns the manifest directory plus every source directory that
// lies outside it.
func watchDirs(m *manifest.Manifest) []string {
	dirs := []string{m.Dir}
	seen := map[string]bool{m.Dir: true}

	for _, src := range m.Sources() {
		dir := filepath.Dir(src)
		if seen[dir] || within(m.Dir, dir) {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isWatched reports whether a change to name should trigger a rebuild.
// The build output itself never does.
func isWatched(name, outputFile string) bool {
	if outputFile != "" {
		if abs, err := filepath.Abs(outputFile); err == nil && abs == name {
			return false
		}
		if name == outputFile {
			return false
		}
	}
	return watchedExtensions[strings.ToLower(filepath.Ext(name))]
}

// addDirRecursive adds a directory and all subdirectories to the watcher.
func addDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			if filepath.Base(path) == "node_modules" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
