package pipeline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/imports"
	"github.com/matzehuels/reqscan/pkg/observability"
	"github.com/matzehuels/reqscan/pkg/source"
)

type fileResult struct {
	names  imports.Set
	hit    bool
	failed bool
}

// Extract collects the top-level import names of every source file under
// opts.Root. Files are parsed on a pool of opts.Workers goroutines; each
// worker owns one result slot and the slots are merged after all workers
// finish. Unreadable or unparsable files are logged and contribute nothing.
func (r *Runner) Extract(ctx context.Context, logger *log.Logger, opts Options) (imports.Set, Stats, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, Stats{}, err
	}
	if logger == nil {
		logger = opts.Logger
	}
	start := time.Now()
	observability.Pipeline().OnExtractStart(ctx, opts.Root)

	paths := slices.Collect(source.Files(opts.Root, source.Options{
		Suffix:  opts.Suffix,
		Exclude: opts.Exclude,
		Warn: func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "code", reqerrors.ErrCodeSourceRead)
		},
	}))

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.extractFile(gctx, logger, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observability.Pipeline().OnExtractComplete(ctx, opts.Root, len(paths), 0, time.Since(start), err)
		return nil, Stats{}, err
	}

	names := imports.NewSet()
	stats := Stats{Files: len(paths)}
	for _, res := range results {
		names.Merge(res.names)
		if res.hit {
			stats.CacheHits++
		}
		if res.failed {
			stats.FailedFiles++
		}
	}
	observability.Pipeline().OnExtractComplete(ctx, opts.Root, stats.Files, stats.FailedFiles, time.Since(start), nil)
	return names, stats, nil
}

func (r *Runner) extractFile(ctx context.Context, logger *log.Logger, path string) fileResult {
	src, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("skipping unreadable file", "path", path,
			"err", reqerrors.Wrap(reqerrors.ErrCodeSourceRead, err, "read"))
		return fileResult{names: imports.Set{}, failed: true}
	}
	names, hit, err := r.ParseCached(ctx, src)
	if err != nil {
		logger.Warn("skipping unparsable file", "path", path, "err", err)
		return fileResult{names: imports.Set{}, hit: hit, failed: true}
	}
	logger.Debug("parsed file", "path", path, "imports", names.Len(), "cached", hit)
	return fileResult{names: names, hit: hit}
}
