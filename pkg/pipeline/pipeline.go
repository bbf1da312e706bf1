// Package pipeline provides the scan pipeline for reqscan.
//
// This package wires the stage packages together into one run that can be
// used by the CLI and by the watch loop. Centralizing the run keeps both entry
// points producing byte-identical manifests for the same tree.
//
// # Architecture
//
// A scan has four stages:
//
//  1. Extract: enumerate source files and collect top-level import names
//  2. Classify: split names into standard-library, internal and third-party
//  3. Resolve: group third-party names into packages and look up versions
//  4. Probe: check every package against the target Python version
//
// The manifest is rendered from the probed entries and, when an output path
// is set, written atomically.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Root:     ".",
//	    Python:   "3.12",
//	    Stdlib:   classifier,
//	    Internal: filter,
//	    Aliases:  resolver,
//	    Versions: provider,
//	    Prober:   prober,
//	    Output:   "requirements.txt",
//	})
package pipeline

import (
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/reqscan/pkg/alias"
	"github.com/matzehuels/reqscan/pkg/compat"
	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/imports"
	"github.com/matzehuels/reqscan/pkg/manifest"
)

const (
	// DefaultTimeout bounds the whole probe stage.
	DefaultTimeout = 2 * time.Minute

	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 30 * time.Second
)

// DefaultWorkers is the size of each worker pool when none is configured.
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 4)
}

// Classification is the category of an import name.
type Classification int

const (
	ThirdParty Classification = iota
	Standard
	Internal
)

func (c Classification) String() string {
	switch c {
	case Standard:
		return "standard"
	case Internal:
		return "internal"
	default:
		return "third-party"
	}
}

// StdlibClassifier reports standard-library membership.
type StdlibClassifier interface {
	IsStandard(name string) bool
}

// InternalFilter reports modules that belong to the scanned project.
type InternalFilter interface {
	IsInternal(name string) bool
}

// AliasResolver groups import names by the package that provides them.
type AliasResolver interface {
	Group(names []string) []alias.Group
}

// VersionProvider looks up installed versions by package identifier.
type VersionProvider interface {
	Version(pkg string) (string, bool)
}

// Classify places name in exactly one category. Standard wins over internal,
// so a project module shadowing a standard module is still omitted. Names
// with a leading underscore that are not standard are private modules.
func Classify(name string, std StdlibClassifier, internal InternalFilter) Classification {
	switch {
	case std != nil && std.IsStandard(name):
		return Standard
	case internal != nil && internal.IsInternal(name):
		return Internal
	case strings.HasPrefix(name, "_"):
		return Internal
	default:
		return ThirdParty
	}
}

// Options contains all configuration for one scan.
type Options struct {
	Root    string   // directory to scan
	Suffix  string   // source file suffix (default ".py")
	Exclude []string // root-relative glob patterns to skip
	Python  string   // target version for probes and the notes header
	NoPin   bool     // omit installed versions from requirement lines
	Output  string   // manifest path; empty skips writing

	Stdlib   StdlibClassifier
	Internal InternalFilter
	Aliases  AliasResolver   // default maps every name to itself
	Versions VersionProvider // default knows no versions
	Prober   compat.Prober   // default compat.Offline

	Workers      int
	Timeout      time.Duration // overall probe deadline
	ProbeTimeout time.Duration // per-probe deadline

	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := reqerrors.ValidateRoot(o.Root); err != nil {
		return err
	}
	if o.Stdlib == nil {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "standard-library classifier is required")
	}
	if o.Aliases == nil {
		o.Aliases = alias.NewResolver(nil, nil)
	}
	if o.Versions == nil {
		o.Versions = noVersions{}
	}
	if o.Prober == nil {
		o.Prober = compat.Offline{}
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

type noVersions struct{}

func (noVersions) Version(string) (string, bool) { return "", false }

// Result contains the outputs of a scan.
type Result struct {
	// RunID identifies the run in logs.
	RunID string

	// Imports holds every top-level import name found.
	Imports imports.Set

	// Classes maps each import name to its category.
	Classes map[string]Classification

	// Entries are the resolved packages in manifest order.
	Entries []manifest.Entry

	// Manifest is the rendered requirements file.
	Manifest []byte

	// Stats contains counts and timings.
	Stats Stats
}

// Stats contains scan statistics.
type Stats struct {
	Files        int
	FailedFiles  int
	CacheHits    int
	Imports      int
	Standard     int
	Internal     int
	ThirdParty   int
	Packages     int
	Incompatible int
	Unverified   int
	ExtractTime  time.Duration
	ProbeTime    time.Duration
}
