// Package compat determines whether a package publishes any distribution
// compatible with a target Python version.
//
// Three probers are provided: [Pip] asks pip to resolve the package in
// dry-run mode, [PyPI] evaluates Requires-Python metadata from the package
// index, and [Offline] never reaches out and reports every package as
// unverified. [Cached] stores definitive answers in a [cache.Cache].
//
// A probe that cannot complete (timeout, network failure, missing tool)
// yields [Unknown] together with an error carrying
// [reqerrors.ErrCodeProbe]. It never yields [Incompatible]: that status is
// reserved for confirmed results.
package compat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/reqscan/pkg/cache"
	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/observability"
)

// Status is the outcome of a compatibility probe.
type Status int

const (
	Unknown Status = iota
	Compatible
	Incompatible
)

func (s Status) String() string {
	switch s {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

// Result is a probe outcome with an optional human-readable reason.
type Result struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Prober checks one package against one Python version.
type Prober interface {
	Name() string
	Probe(ctx context.Context, pkg, python string) (Result, error)
}

// Offline reports every package as unverified.
type Offline struct{}

func (Offline) Name() string { return "offline" }

func (Offline) Probe(context.Context, string, string) (Result, error) {
	return Result{Status: Unknown}, nil
}

// failed converts a probe failure into an unverified result.
func failed(pkg string, err error) (Result, error) {
	return Result{Status: Unknown}, reqerrors.Wrap(reqerrors.ErrCodeProbe, err, "probe %s", pkg)
}

// DefaultTTL is how long definitive probe results stay cached.
const DefaultTTL = 24 * time.Hour

// Cached memoizes definitive results of another prober. Failures and
// unknown results are not stored, so they are retried on the next run.
type Cached struct {
	Prober
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// NewCached wraps p. A nil keyer uses [cache.DefaultKeyer].
func NewCached(p Prober, c cache.Cache, keyer cache.Keyer, ttl time.Duration) *Cached {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Cached{Prober: p, cache: c, keyer: keyer, ttl: ttl}
}

func (c *Cached) Probe(ctx context.Context, pkg, python string) (Result, error) {
	key := c.keyer.ProbeKey(c.Prober.Name(), pkg, python)
	var r Result
	if hit, err := cache.GetJSON(ctx, c.cache, key, &r); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "probe")
		return r, nil
	}
	observability.Cache().OnCacheMiss(ctx, "probe")
	r, err := c.Prober.Probe(ctx, pkg, python)
	if err != nil || r.Status == Unknown {
		return r, err
	}
	if data, err := json.Marshal(r); err == nil && c.cache.Set(ctx, key, data, c.ttl) == nil {
		observability.Cache().OnCacheSet(ctx, "probe", len(data))
	}
	return r, nil
}
