// Package cli implements the reqscan command-line interface.
//
// The root command scans a Python source tree and writes a requirements
// manifest. Subcommands keep the manifest current while files change
// (watch) and manage the on-disk result cache (cache).
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so every stage logs with the same handler.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reqscan/pkg/buildinfo"
	"github.com/matzehuels/reqscan/pkg/cache"
	"github.com/matzehuels/reqscan/pkg/config"
	"github.com/matzehuels/reqscan/pkg/observability"
)

const (
	// appName is the application name used for directories and display.
	appName = "reqscan"

	// memoryTTL bounds how long entries stay in the in-process front cache.
	memoryTTL = 10 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer // manifest output for --print
	Err    io.Writer // status lines
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		Err:    w,
	}
}

// SetLogLevel updates the logger's level. At debug level hook events from
// the pipeline, caches and index client are logged as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		observability.InstallLogging(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	flags := &scanFlags{}
	root := &cobra.Command{
		Use:   "reqscan [dir]",
		Short: "reqscan generates requirements.txt from Python imports",
		Long: `reqscan scans a Python source tree for import statements, drops standard-library
and project-internal modules, maps the rest to installable packages and writes
a pip requirements manifest. Packages that publish nothing for the target Python
version are commented out with the reason.`,
		Version:       buildinfo.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.scan(cmd, rootArg(args), flags)
			return err
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	flags.register(root)

	root.AddCommand(c.watchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func rootArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// newCache builds the result cache for a run. Results are always held in
// memory first; the backing store is Redis when a cache URL is configured
// and the user cache directory otherwise.
func newCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if cfg.NoCache {
		return cache.NewNullCache()
	}
	logger := loggerFromContext(ctx)
	front := cache.NewMemoryCache(0)

	if cfg.CacheURL != "" {
		back, err := cache.NewRedisCache(ctx, cfg.CacheURL, appName+":")
		if err == nil {
			return cache.NewLayered(front, back, memoryTTL)
		}
		logger.Warn("shared cache unavailable, using local cache", "url", cfg.CacheURL, "err", err)
	}

	dir, err := cacheDir()
	if err != nil {
		return front
	}
	back, err := cache.NewFileCache(dir)
	if err != nil {
		logger.Warn("cache directory unavailable", "dir", dir, "err", err)
		return front
	}
	return cache.NewLayered(front, back, memoryTTL)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/reqscan/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
