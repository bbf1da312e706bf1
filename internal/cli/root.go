package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reqscan/pkg/alias"
	"github.com/matzehuels/reqscan/pkg/cache"
	"github.com/matzehuels/reqscan/pkg/compat"
	"github.com/matzehuels/reqscan/pkg/config"
	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/installed"
	"github.com/matzehuels/reqscan/pkg/integrations/pypi"
	"github.com/matzehuels/reqscan/pkg/interp"
	"github.com/matzehuels/reqscan/pkg/pipeline"
	"github.com/matzehuels/reqscan/pkg/project"
	"github.com/matzehuels/reqscan/pkg/stdlib"
)

// scanFlags holds command-line overrides for [tool.reqscan] settings.
type scanFlags struct {
	output       string
	python       string
	interpreter  string
	aliasFile    string
	probe        string
	cacheURL     string
	internal     []string
	exclude      []string
	sitePackages []string
	noLocal      bool
	noPin        bool
	noCache      bool
	print        bool
	refresh      bool
	workers      int
	timeout      time.Duration
	probeTimeout time.Duration
}

func (f *scanFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "manifest path (default <dir>/requirements.txt)")
	fl.StringVar(&f.python, "python", "", "target Python version, e.g. 3.12 (default: the interpreter's)")
	fl.StringVar(&f.interpreter, "interpreter", "", "python executable to inspect (default: python3 on PATH)")
	fl.StringVar(&f.aliasFile, "aliases", "", "YAML file mapping import names to package names")
	fl.StringVar(&f.probe, "probe", config.DefaultProbe, "compatibility probe: pypi, pip or off")
	fl.StringVar(&f.cacheURL, "cache-url", "", "shared Redis cache, e.g. redis://localhost:6379/0")
	fl.StringSliceVar(&f.internal, "internal", nil, "additional project-internal module names")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "glob patterns of files and directories to skip")
	fl.StringSliceVar(&f.sitePackages, "site-packages", nil, "directories to read installed versions from")
	fl.BoolVar(&f.noLocal, "no-local", false, "do not detect project modules from the directory layout")
	fl.BoolVar(&f.noPin, "no-pin", false, "omit installed versions from requirement lines")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fl.BoolVar(&f.print, "print", false, "print the manifest to stdout instead of writing it")
	fl.BoolVar(&f.refresh, "refresh", false, "ignore cached package index responses")
	fl.IntVar(&f.workers, "workers", runtime.NumCPU(), "parallel parse and probe workers")
	fl.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "overall limit for compatibility probes")
	fl.DurationVar(&f.probeTimeout, "probe-timeout", config.DefaultProbeTimeout, "limit for a single probe")
}

// apply overrides cfg with every flag set on the command line. Paths given
// on the command line are relative to the working directory, not the
// project.
func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	abs := func(p string) (string, error) {
		if p == "" {
			return p, nil
		}
		return filepath.Abs(p)
	}

	var err error
	if changed("output") {
		if cfg.Output, err = abs(f.output); err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidPath, err, "output")
		}
	}
	if changed("aliases") {
		if cfg.AliasFile, err = abs(f.aliasFile); err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidPath, err, "aliases")
		}
	}
	if changed("site-packages") {
		cfg.SitePackages = cfg.SitePackages[:0]
		for _, dir := range f.sitePackages {
			p, err := abs(dir)
			if err != nil {
				return reqerrors.Wrap(reqerrors.ErrCodeInvalidPath, err, "site-packages")
			}
			cfg.SitePackages = append(cfg.SitePackages, p)
		}
	}
	if changed("python") {
		cfg.Python = f.python
	}
	if changed("interpreter") {
		cfg.Interpreter = f.interpreter
	}
	if changed("probe") {
		cfg.Probe = f.probe
	}
	if changed("cache-url") {
		cfg.CacheURL = f.cacheURL
	}
	if changed("internal") {
		cfg.Internal = append(cfg.Internal, f.internal...)
	}
	if changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
	}
	if changed("no-local") {
		cfg.NoLocal = f.noLocal
	}
	if changed("no-pin") {
		cfg.NoPin = f.noPin
	}
	if changed("no-cache") {
		cfg.NoCache = f.noCache
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("probe-timeout") {
		cfg.ProbeTimeout = f.probeTimeout
	}
	return cfg.Validate()
}

// scan runs one scan of dir and reports the outcome.
func (c *CLI) scan(cmd *cobra.Command, dir string, flags *scanFlags) (*pipeline.Result, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidPath, err, "resolve %s", dir)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return nil, reqerrors.New(reqerrors.ErrCodeInvalidPath, "%s is not a directory", dir)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return nil, err
	}

	store := newCache(ctx, cfg)
	defer store.Close()

	opts, err := buildOptions(ctx, root, cfg, store, flags.refresh)
	if err != nil {
		return nil, err
	}
	if !flags.print {
		opts.Output = cfg.OutputPath()
	}

	res, err := pipeline.NewRunner(store, nil, logger).Execute(ctx, opts)
	if err != nil {
		return nil, err
	}

	if flags.print {
		_, err := c.Out.Write(res.Manifest)
		return res, err
	}
	c.printResult(res, opts.Output, prog.elapsed())
	return res, nil
}

// sitePackages picks where installed distributions are read from: the
// configured directories, else the active virtual environment, else the
// interpreter's own search path.
func sitePackages(ctx context.Context, cfg *config.Config, py *interp.Interpreter) ([]string, error) {
	if len(cfg.SitePackages) > 0 {
		dirs := make([]string, 0, len(cfg.SitePackages))
		for _, d := range cfg.SitePackages {
			dirs = append(dirs, cfg.Path(d))
		}
		return dirs, nil
	}
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		if dirs := interp.VirtualEnvSitePackages(venv); len(dirs) > 0 {
			return dirs, nil
		}
	}
	if py == nil {
		return nil, nil
	}
	return py.SitePackages(ctx)
}

// buildOptions assembles the stage implementations for one scan.
func buildOptions(ctx context.Context, root string, cfg *config.Config, store cache.Cache, refresh bool) (pipeline.Options, error) {
	logger := loggerFromContext(ctx)

	py, err := interp.Find(cfg.Interpreter)
	if err != nil {
		logger.Warn("python interpreter unavailable", "err", err)
	} else if _, err := py.Describe(ctx); err != nil {
		logger.Warn("cannot inspect python interpreter", "path", py.Path, "err", err)
		py = nil
	}

	target := cfg.Python
	if target == "" && py != nil {
		if target, err = py.Version(ctx); err != nil {
			return pipeline.Options{}, err
		}
	}
	std, err := stdlib.New(stdlib.Options{
		Version: target,
		GOOS:    runtime.GOOS,
		Builtins: func() ([]string, error) {
			if py == nil {
				return nil, errors.New("no python interpreter")
			}
			return py.BuiltinModules(ctx)
		},
		Logger: logger,
	})
	if err != nil {
		return pipeline.Options{}, err
	}
	if target == "" {
		target = std.Version()
	}

	filter := project.NewFilter(cfg.Internal...)
	if !cfg.NoLocal {
		local, err := project.LocalModules(root)
		if err != nil {
			return pipeline.Options{}, err
		}
		filter.Add(local...)
		logger.Debug("detected project modules", "modules", local)
	}

	dirs, err := sitePackages(ctx, cfg, py)
	if err != nil {
		return pipeline.Options{}, err
	}
	versions := installed.Scan(dirs, logger)
	logger.Debug("read installed distributions", "count", versions.Len(), "dirs", dirs)

	var layers []alias.Table
	if cfg.AliasFile != "" {
		t, err := alias.LoadYAML(cfg.Path(cfg.AliasFile))
		if err != nil {
			return pipeline.Options{}, err
		}
		layers = append(layers, t)
	}
	if len(cfg.Aliases) > 0 {
		layers = append(layers, alias.Table(cfg.Aliases))
	}
	table, err := alias.Merge(alias.Builtin(), layers...)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Root:         root,
		Exclude:      cfg.Exclude,
		Python:       target,
		NoPin:        cfg.NoPin,
		Stdlib:       std,
		Internal:     filter,
		Aliases:      alias.NewResolver(table, alias.Discovered(versions.TopLevel())),
		Versions:     versions,
		Prober:       newProber(cfg, py, store, refresh, logger),
		Workers:      cfg.Workers,
		Timeout:      cfg.Timeout,
		ProbeTimeout: cfg.ProbeTimeout,
		Logger:       logger,
	}, nil
}

func newProber(cfg *config.Config, py *interp.Interpreter, store cache.Cache, refresh bool, logger *log.Logger) compat.Prober {
	var p compat.Prober
	switch cfg.Probe {
	case config.ProbeOff:
		return compat.Offline{}
	case config.ProbePip:
		if py == nil {
			logger.Warn("pip probe needs a python interpreter, compatibility will not be verified")
			return compat.Offline{}
		}
		pip := compat.NewPip(py.Path, nil)
		pip.Timeout = cfg.ProbeTimeout
		p = pip
	default:
		p = compat.NewPyPI(pypi.NewClient(store, compat.DefaultTTL), refresh)
	}
	if refresh {
		return p
	}
	return compat.NewCached(p, store, nil, compat.DefaultTTL)
}
