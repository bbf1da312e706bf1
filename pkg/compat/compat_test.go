package compat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/reqscan/pkg/cache"
	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/integrations"
	"github.com/matzehuels/reqscan/pkg/integrations/pypi"
)

func TestAllowsPython(t *testing.T) {
	tests := []struct {
		spec   string
		python string
		want   bool
	}{
		{"", "3.11", true},
		{">=3.8", "3.11", true},
		{">=3.12", "3.11", false},
		{">=3.7, <4", "3.13", true},
		{">=3.7,<3.11", "3.11", false},
		{"!=3.0.*,!=3.1.*,>=2.7", "3.11", true},
		{"!=3.11.*", "3.11", false},
		{"==3.*", "3.9", true},
		{"==2.*", "3.9", false},
		{"~=3.8", "3.12", true},
		{"~=3.8", "3.7", false},
		{"~=3.8.1", "3.8", false},
		{"~=3.8.1", "3.8.5", true},
		{"~=3.8.1", "3.9", false},
		{">3.6", "3.6.1", true},
		{"<3.11", "3.11", false},
		{"<=3.11", "3.11", true},
		{"==3.11", "3.11.0", true},
		{">=3.10.0rc1", "3.10", true},
		{">= 3.9", "3.10.4", true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s@%s", tt.spec, tt.python), func(t *testing.T) {
			got, err := AllowsPython(tt.spec, tt.python)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowsPythonInvalid(t *testing.T) {
	for _, spec := range []string{"foo", ">=", "~=3", ">=3.*", "=>3.8 junk"} {
		_, err := AllowsPython(spec, "3.11")
		assert.Error(t, err, spec)
	}
	_, err := AllowsPython(">=3.8", "latest")
	assert.Error(t, err)
}

func TestWheelAccepts(t *testing.T) {
	tests := []struct {
		file   string
		python string
		want   bool
	}{
		{"pkg-1.0-py3-none-any.whl", "3.12", true},
		{"pkg-1.0-py2.py3-none-any.whl", "3.12", true},
		{"pkg-1.0-py2-none-any.whl", "3.12", false},
		{"pkg-1.0-cp311-cp311-manylinux_2_17_x86_64.whl", "3.11", true},
		{"pkg-1.0-cp311-cp311-manylinux_2_17_x86_64.whl", "3.12", false},
		{"pkg-1.0-cp38-abi3-win_amd64.whl", "3.13", true},
		{"pkg-1.0-cp38-abi3-win_amd64.whl", "3.7", false},
		{"pkg-1.0-1build-cp312-cp312-macosx_11_0_arm64.whl", "3.12", true},
		{"pkg-1.0-pp39-pypy39_pp73-any.whl", "3.9", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wheelAccepts(tt.file, tt.python), "%s @ %s", tt.file, tt.python)
	}
}

type fakeFetcher map[string]*pypi.Project

func (f fakeFetcher) FetchProject(ctx context.Context, name string, refresh bool) (*pypi.Project, error) {
	if name == "broken" {
		return nil, fmt.Errorf("%w: connection refused", integrations.ErrNetwork)
	}
	p, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%w: pypi project %s", integrations.ErrNotFound, name)
	}
	return p, nil
}

func wheel(name, requires string) pypi.File {
	return pypi.File{Filename: name, PackageType: "bdist_wheel", RequiresPython: requires}
}

func TestPyPIProbe(t *testing.T) {
	fetcher := fakeFetcher{
		"requests": {Name: "requests", Releases: map[string][]pypi.File{
			"2.31.0": {wheel("requests-2.31.0-py3-none-any.whl", ">=3.7")},
		}},
		"newonly": {Name: "newonly", Releases: map[string][]pypi.File{
			"1.0": {wheel("newonly-1.0-py3-none-any.whl", ">=3.10")},
			"2.0": {wheel("newonly-2.0-py3-none-any.whl", ">=3.12")},
		}},
		"yanked": {Name: "yanked", Releases: map[string][]pypi.File{
			"1.0": {{Filename: "yanked-1.0.tar.gz", PackageType: "sdist", Yanked: true}},
		}},
		"empty": {Name: "empty", Releases: map[string][]pypi.File{"0.1": {}}},
		"binary": {Name: "binary", Releases: map[string][]pypi.File{
			"1.0": {wheel("binary-1.0-cp39-cp39-win_amd64.whl", "")},
		}},
		"sdist": {Name: "sdist", Releases: map[string][]pypi.File{
			"1.0": {{Filename: "sdist-1.0.tar.gz", PackageType: "sdist", RequiresPython: ">=3.6"}},
		}},
	}
	p := NewPyPI(fetcher, false)
	ctx := context.Background()

	tests := []struct {
		pkg    string
		python string
		status Status
		reason string
	}{
		{"requests", "3.11", Compatible, ""},
		{"newonly", "3.11", Compatible, ""},
		{"newonly", "3.9", Incompatible, "newonly 2.0 requires Python >=3.12"},
		{"yanked", "3.11", Incompatible, "no distributions published"},
		{"empty", "3.11", Incompatible, "no distributions published"},
		{"binary", "3.11", Incompatible, "no binary release ships a distribution for Python 3.11"},
		{"binary", "3.9", Compatible, ""},
		{"sdist", "3.12", Compatible, ""},
		{"missing", "3.11", Incompatible, "not found on PyPI"},
	}
	for _, tt := range tests {
		t.Run(tt.pkg+"@"+tt.python, func(t *testing.T) {
			r, err := p.Probe(ctx, tt.pkg, tt.python)
			require.NoError(t, err)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.reason, r.Reason)
		})
	}

	r, err := p.Probe(ctx, "broken", "3.11")
	assert.Equal(t, Unknown, r.Status, "network failures are unverified, not incompatible")
	assert.True(t, reqerrors.Is(err, reqerrors.ErrCodeProbe))
	assert.Equal(t, "pypi", p.Name())
}

// pipOffline is what pip prints when the index cannot be resolved.
const pipOffline = `WARNING: Retrying (Retry(total=4, connect=None, read=None, redirect=None, status=None)) after connection broken by 'NewConnectionError('<pip._vendor.urllib3.connection.HTTPSConnection object at 0x7f1c2b3d4e50>: Failed to establish a new connection: [Errno -3] Temporary failure in name resolution')': /simple/newonly/
WARNING: Retrying (Retry(total=3, connect=None, read=None, redirect=None, status=None)) after connection broken by 'NewConnectionError('<pip._vendor.urllib3.connection.HTTPSConnection object at 0x7f1c2b3d5f10>: Failed to establish a new connection: [Errno -3] Temporary failure in name resolution')': /simple/newonly/
ERROR: Could not find a version that satisfies the requirement newonly (from versions: none)
ERROR: No matching distribution found for newonly
`

type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

func TestPipProbe(t *testing.T) {
	const incompatibleOut = `ERROR: Ignored the following versions that require a different python version: 2.0 Requires-Python >=3.12
ERROR: Could not find a version that satisfies the requirement newonly (from versions: 1.0)
ERROR: No matching distribution found for newonly
`
	tests := []struct {
		name   string
		out    string
		err    error
		status Status
		reason string
		fails  bool
	}{
		{"compatible", "", nil, Compatible, "", false},
		{"incompatible", incompatibleOut, &exitError{1}, Incompatible,
			"Ignored the following versions that require a different python version: 2.0 Requires-Python >=3.12", false},
		{"no match only", "ERROR: No matching distribution found for nosuchpkg\n", &exitError{1}, Incompatible,
			"No matching distribution found for nosuchpkg", false},
		{"offline", pipOffline, &exitError{1}, Unknown, "", true},
		{"proxy", "WARNING: Retrying (Retry(total=0, connect=None, read=None, redirect=None, status=None)) after connection broken by 'ProxyError('Cannot connect to proxy.')': /simple/newonly/\nERROR: No matching distribution found for newonly\n", &exitError{1}, Unknown, "", true},
		{"other failure", "ERROR: Could not install packages due to an OSError\n", &exitError{1}, Unknown, "", true},
		{"tool missing", "", errors.New(`exec: "python3": executable file not found in $PATH`), Unknown, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []string
			run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
				gotArgs = append([]string{name}, args...)
				return []byte(tt.out), tt.err
			}
			p := NewPip("python3", run)
			r, err := p.Probe(context.Background(), "newonly", "3.11")

			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.reason, r.Reason)
			if tt.fails {
				assert.True(t, reqerrors.Is(err, reqerrors.ErrCodeProbe), "error: %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, gotArgs, "--dry-run")
			assert.Equal(t, []string{"--python-version", "3.11", "newonly"}, gotArgs[len(gotArgs)-3:])
		})
	}
}

func TestPipProbeTimeout(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, &exitError{-1}
	}
	p := NewPip("python3", run)
	p.Timeout = 10 * time.Millisecond

	r, err := p.Probe(context.Background(), "slow", "3.11")
	assert.Equal(t, Unknown, r.Status)
	assert.True(t, reqerrors.Is(err, reqerrors.ErrCodeProbe))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOffline(t *testing.T) {
	r, err := Offline{}.Probe(context.Background(), "anything", "3.11")
	assert.NoError(t, err)
	assert.Equal(t, Unknown, r.Status)
}

type countingProber struct {
	calls  int
	result Result
	err    error
}

func (c *countingProber) Name() string { return "counting" }

func (c *countingProber) Probe(context.Context, string, string) (Result, error) {
	c.calls++
	return c.result, c.err
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache(16)

	inner := &countingProber{result: Result{Status: Incompatible, Reason: "too new"}}
	c := NewCached(inner, mem, nil, time.Hour)
	for range 3 {
		r, err := c.Probe(ctx, "Pkg", "3.11")
		require.NoError(t, err)
		assert.Equal(t, Result{Status: Incompatible, Reason: "too new"}, r)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", c.Name())

	_, _ = c.Probe(ctx, "Pkg", "3.12")
	assert.Equal(t, 2, inner.calls, "python version is part of the key")

	failing := &countingProber{err: errors.New("boom")}
	c = NewCached(failing, mem, nil, time.Hour)
	for range 2 {
		r, err := c.Probe(ctx, "other", "3.11")
		assert.Error(t, err)
		assert.Equal(t, Unknown, r.Status)
	}
	assert.Equal(t, 2, failing.calls, "failures are not cached")
}

func TestCached_PipOffline(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache(16)

	online := false
	run := func(context.Context, string, ...string) ([]byte, error) {
		if online {
			return nil, nil
		}
		return []byte(pipOffline), &exitError{1}
	}
	c := NewCached(NewPip("python3", run), mem, nil, time.Hour)

	r, err := c.Probe(ctx, "newonly", "3.11")
	assert.Error(t, err)
	assert.Equal(t, Unknown, r.Status)

	online = true
	r, err = c.Probe(ctx, "newonly", "3.11")
	require.NoError(t, err)
	assert.Equal(t, Compatible, r.Status)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "compatible", Compatible.String())
	assert.Equal(t, "incompatible", Incompatible.String())
	assert.Equal(t, "unknown", Unknown.String())
}
