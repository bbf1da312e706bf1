package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/reqscan/pkg/compat"
	"github.com/matzehuels/reqscan/pkg/manifest"
	"github.com/matzehuels/reqscan/pkg/observability"
)

// Resolve groups third-party import names into packages, attaches installed
// versions and probes each package against opts.Python.
//
// Probes run on a pool of opts.Workers goroutines. Each probe gets
// opts.ProbeTimeout and the whole stage shares opts.Timeout; a probe that
// fails or runs out of time leaves its package unverified. Results are
// stored by index, so the returned entries never depend on scheduling. Only
// cancellation of ctx itself is returned as an error.
func (r *Runner) Resolve(ctx context.Context, logger *log.Logger, names []string, opts Options) ([]manifest.Entry, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = opts.Logger
	}

	groups := opts.Aliases.Group(names)
	entries := make([]manifest.Entry, len(groups))
	for i, g := range groups {
		entries[i] = manifest.Entry{Package: g.Package, Imports: g.Imports}
		if v, ok := opts.Versions.Version(g.Package); ok {
			entries[i].Version = v
		} else {
			logger.Warn("package imported but not installed", "package", g.Package, "imports", g.Imports)
		}
	}

	stageCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i := range entries {
		g.Go(func() error {
			res := r.probe(stageCtx, logger, entries[i].Package, opts)
			entries[i].Status = res.Status
			entries[i].Reason = res.Reason
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest.Sort(entries)
	return entries, nil
}

func (r *Runner) probe(ctx context.Context, logger *log.Logger, pkg string, opts Options) compat.Result {
	if opts.Python == "" {
		return compat.Result{Status: compat.Unknown}
	}
	pctx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
	defer cancel()

	start := time.Now()
	res, err := opts.Prober.Probe(pctx, pkg, opts.Python)
	observability.Pipeline().OnProbeComplete(ctx, opts.Prober.Name(), pkg, res.Status.String(), time.Since(start), err)
	if err != nil {
		logger.Warn("compatibility unverified", "package", pkg, "err", err)
		return compat.Result{Status: compat.Unknown}
	}
	logger.Debug("probed package", "package", pkg, "python", opts.Python, "status", res.Status)
	return res
}
