package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/reqscan/pkg/cache"
	"github.com/matzehuels/reqscan/pkg/compat"
	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/imports"
	"github.com/matzehuels/reqscan/pkg/manifest"
	"github.com/matzehuels/reqscan/pkg/observability"
)

// Runner encapsulates scan execution with caching.
//
// The Runner is stateless except for the cache and logger. It doesn't store
// scan results, so multiple goroutines can use the same Runner with
// different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs a complete scan. Per-file and per-package failures are logged
// and skipped; only an invalid root, invalid options, cancellation of ctx
// and a failed manifest write are returned as errors.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := checkRoot(opts.Root); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	logger := opts.Logger.With("run", result.RunID[:8])

	// Stage 1: Extract
	start := time.Now()
	names, stats, err := r.Extract(ctx, logger, opts)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	result.Imports = names
	result.Stats = stats
	result.Stats.Imports = names.Len()
	result.Stats.ExtractTime = time.Since(start)

	logger.Info("extracted imports",
		"files", stats.Files,
		"failed", stats.FailedFiles,
		"imports", names.Len(),
		"duration", result.Stats.ExtractTime)

	// Stage 2: Classify
	result.Classes = make(map[string]Classification, names.Len())
	var thirdParty []string
	for _, name := range names.Sorted() {
		class := Classify(name, opts.Stdlib, opts.Internal)
		result.Classes[name] = class
		switch class {
		case Standard:
			result.Stats.Standard++
		case Internal:
			result.Stats.Internal++
		default:
			result.Stats.ThirdParty++
			thirdParty = append(thirdParty, name)
		}
		logger.Debug("classified import", "name", name, "class", class)
	}

	// Stages 3 and 4: Resolve and Probe
	start = time.Now()
	entries, err := r.Resolve(ctx, logger, thirdParty, opts)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	result.Entries = entries
	result.Stats.ProbeTime = time.Since(start)
	result.Stats.Packages = len(entries)
	for _, e := range entries {
		switch e.Status {
		case compat.Incompatible:
			result.Stats.Incompatible++
		case compat.Unknown:
			result.Stats.Unverified++
		}
	}

	logger.Info("resolved packages",
		"packages", len(entries),
		"incompatible", result.Stats.Incompatible,
		"unverified", result.Stats.Unverified,
		"prober", opts.Prober.Name(),
		"duration", result.Stats.ProbeTime)

	result.Manifest = manifest.Render(entries, manifest.Options{Python: opts.Python, NoPin: opts.NoPin})
	if opts.Output != "" {
		if err := manifest.Write(opts.Output, result.Manifest); err != nil {
			return nil, err
		}
		logger.Info("wrote manifest", "path", opts.Output)
	}
	return result, nil
}

func checkRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return reqerrors.Wrap(reqerrors.ErrCodeInvalidPath, err, "root %s", root)
	}
	if !fi.IsDir() {
		return reqerrors.New(reqerrors.ErrCodeInvalidPath, "root %s is not a directory", root)
	}
	return nil
}

// ParseCached extracts the import set of src, consulting the cache by
// content fingerprint. Parse failures are cached as well, so an unchanged
// broken file is reported again without reparsing.
func (r *Runner) ParseCached(ctx context.Context, src []byte) (imports.Set, bool, error) {
	key := r.Keyer.ImportsKey(cache.Fingerprint(src))
	var cached cachedImports
	if hit, err := cache.GetJSON(ctx, r.Cache, key, &cached); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "imports")
		if cached.Error != "" {
			return imports.Set{}, true, reqerrors.New(reqerrors.ErrCodeParse, "%s", cached.Error)
		}
		return imports.NewSet(cached.Imports...), true, nil
	}

	observability.Cache().OnCacheMiss(ctx, "imports")

	names, err := imports.Parse(src)
	entry := cachedImports{Imports: names.Sorted()}
	if err != nil {
		entry.Error = err.Error()
		err = reqerrors.Wrap(reqerrors.ErrCodeParse, err, "parse")
	}
	if data, err := json.Marshal(entry); err == nil && r.Cache.Set(ctx, key, data, extractTTL) == nil {
		observability.Cache().OnCacheSet(ctx, "imports", len(data))
	}
	return names, false, err
}

// extractTTL is long because entries are keyed by file content.
const extractTTL = 30 * 24 * time.Hour

type cachedImports struct {
	Imports []string `json:"imports"`
	Error   string   `json:"error,omitempty"`
}
