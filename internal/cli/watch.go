package cli

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reqscan/pkg/config"
	"github.com/matzehuels/reqscan/pkg/source"
)

// watchDebounce coalesces bursts of events, such as an editor saving
// several files, into one scan.
const watchDebounce = 300 * time.Millisecond

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Regenerate the manifest whenever sources change",
		Long: `Scan once, then watch the source tree and scan again whenever a Python file
or pyproject.toml is created, changed or removed. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.watch(cmd, rootArg(args), flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) watch(cmd *cobra.Command, dir string, flags *scanFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if _, err := c.scan(cmd, dir, flags); err != nil {
		return err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	for d := range watchDirs(root) {
		if err := w.Add(d); err != nil {
			logger.Warn("cannot watch directory", "dir", d, "err", err)
		}
	}
	c.printInfo("Watching %s for changes (Ctrl-C to stop)", root)

	var rescan <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					for d := range watchDirs(ev.Name) {
						_ = w.Add(d)
					}
				}
			}
			if !relevant(ev.Name) {
				continue
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			rescan = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case <-rescan:
			rescan = nil
			if _, err := c.scan(cmd, dir, flags); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("scan failed", "err", err)
			}
		}
	}
}

// relevant reports whether a change to path can alter the manifest.
func relevant(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, source.DefaultSuffix) || base == config.Filename
}

// watchDirs yields root and every directory below it that a scan would
// enter.
func watchDirs(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && source.SkipDirs[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
