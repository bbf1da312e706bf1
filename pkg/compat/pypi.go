package compat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/reqscan/pkg/integrations"
	"github.com/matzehuels/reqscan/pkg/integrations/pypi"
)

// ProjectFetcher retrieves release metadata from a package index.
type ProjectFetcher interface {
	FetchProject(ctx context.Context, name string, refresh bool) (*pypi.Project, error)
}

// PyPI probes compatibility from the index's Requires-Python metadata and
// wheel tags. A project the index does not know is reported incompatible.
type PyPI struct {
	client  ProjectFetcher
	refresh bool
}

// NewPyPI returns a prober backed by client. With refresh set the client's
// response cache is bypassed.
func NewPyPI(client ProjectFetcher, refresh bool) *PyPI {
	return &PyPI{client: client, refresh: refresh}
}

func (p *PyPI) Name() string { return "pypi" }

func (p *PyPI) Probe(ctx context.Context, pkg, python string) (Result, error) {
	project, err := p.client.FetchProject(ctx, pkg, p.refresh)
	if errors.Is(err, integrations.ErrNotFound) {
		return Result{Status: Incompatible, Reason: "not found on PyPI"}, nil
	}
	if err != nil {
		return failed(pkg, err)
	}
	return evaluate(project, python)
}

// evaluate reports Compatible if any non-yanked file of any release accepts
// python. Otherwise the reason cites the newest release's requirement.
func evaluate(project *pypi.Project, python string) (Result, error) {
	versions := sortedReleases(project.Releases)
	published := false
	for _, v := range versions {
		for _, f := range project.Releases[v] {
			if f.Yanked {
				continue
			}
			published = true
			ok, err := fileAccepts(f, python)
			if err != nil {
				return failed(project.Name, err)
			}
			if ok {
				return Result{Status: Compatible}, nil
			}
		}
	}
	if !published {
		return Result{Status: Incompatible, Reason: "no distributions published"}, nil
	}

	latest := versions[0]
	for _, f := range project.Releases[latest] {
		if f.RequiresPython != "" && !f.Yanked {
			return Result{Status: Incompatible, Reason: fmt.Sprintf("%s %s requires Python %s", project.Name, latest, f.RequiresPython)}, nil
		}
	}
	return Result{Status: Incompatible, Reason: fmt.Sprintf("no %s release ships a distribution for Python %s", project.Name, python)}, nil
}

// fileAccepts checks a file's Requires-Python and, for wheels, its tags.
// Malformed Requires-Python metadata is ignored as pip does.
func fileAccepts(f pypi.File, python string) (bool, error) {
	if _, err := semver.NewVersion(release(python)); err != nil {
		return false, fmt.Errorf("python version %q: %w", python, err)
	}
	if ok, err := AllowsPython(f.RequiresPython, python); err == nil && !ok {
		return false, nil
	}
	if strings.HasSuffix(f.Filename, ".whl") {
		return wheelAccepts(f.Filename, python), nil
	}
	return true, nil
}

// wheelAccepts evaluates the python and ABI tags of a wheel filename
// ({name}-{ver}[-{build}]-{python}-{abi}-{platform}.whl) for CPython.
func wheelAccepts(filename, python string) bool {
	parts := strings.Split(strings.TrimSuffix(filename, ".whl"), "-")
	if len(parts) < 5 {
		return true
	}
	pyTags := strings.Split(parts[len(parts)-3], ".")
	abiTags := strings.Split(parts[len(parts)-2], ".")
	target, err := semver.NewVersion(release(python))
	if err != nil {
		return true
	}
	stable := slices.Contains(abiTags, "abi3")

	for _, tag := range pyTags {
		switch {
		case strings.HasPrefix(tag, "py"):
			// Pure-Python tags name the major version only, or a minimum.
			if v := tagVersion(tag[2:]); v == nil || v.Major() == target.Major() {
				return true
			}
		case strings.HasPrefix(tag, "cp"):
			v := tagVersion(tag[2:])
			if v == nil {
				continue
			}
			if v.Major() == target.Major() && v.Minor() == target.Minor() {
				return true
			}
			if stable && v.Major() == target.Major() && v.Minor() <= target.Minor() {
				return true
			}
		}
	}
	return false
}

// tagVersion parses a wheel tag version: "3" is 3.0, "311" is 3.11.
func tagVersion(s string) *semver.Version {
	if s == "" {
		return nil
	}
	v, err := semver.NewVersion(s[:1] + "." + orZero(s[1:]))
	if err != nil {
		return nil
	}
	return v
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// sortedReleases returns release versions newest first. Versions semver
// cannot read sort after those it can.
func sortedReleases(releases map[string][]pypi.File) []string {
	type rel struct {
		raw string
		v   *semver.Version
	}
	rels := make([]rel, 0, len(releases))
	for raw := range releases {
		v, _ := semver.NewVersion(release(raw))
		rels = append(rels, rel{raw, v})
	}
	slices.SortFunc(rels, func(a, b rel) int {
		switch {
		case a.v != nil && b.v != nil:
			if c := b.v.Compare(a.v); c != 0 {
				return c
			}
		case a.v != nil:
			return -1
		case b.v != nil:
			return 1
		}
		return strings.Compare(b.raw, a.raw)
	})
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.raw
	}
	return out
}
