// Package interp queries a local Python interpreter.
//
// The scanner never imports or executes project code. The interpreter is only
// asked to describe itself: its version, the modules compiled into it, and
// the site-packages directories it searches. All three come from a single
// subprocess call so a scan pays the interpreter start-up cost once.
package interp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single interpreter query.
const DefaultTimeout = 10 * time.Second

// candidates are tried in order when no interpreter path is given.
var candidates = []string{"python3", "python"}

const describeScript = `import json, site, sys, sysconfig
paths = []
try:
    paths.extend(site.getsitepackages())
except Exception:
    pass
try:
    paths.append(site.getusersitepackages())
except Exception:
    pass
for key in ("purelib", "platlib"):
    p = sysconfig.get_paths().get(key)
    if p:
        paths.append(p)
print(json.dumps({
    "version": "%d.%d.%d" % sys.version_info[:3],
    "builtins": sorted(sys.builtin_module_names),
    "site_packages": paths,
    "platform": sys.platform,
}))
`

// Info describes an interpreter.
type Info struct {
	Version      string   `json:"version"`
	Builtins     []string `json:"builtins"`
	SitePackages []string `json:"site_packages"`
	Platform     string   `json:"platform"`
}

// MinorVersion returns the "major.minor" prefix of Version.
func (i *Info) MinorVersion() string {
	parts := strings.SplitN(i.Version, ".", 3)
	if len(parts) < 2 {
		return i.Version
	}
	return parts[0] + "." + parts[1]
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Interpreter is a Python executable on this machine.
type Interpreter struct {
	Path    string
	Timeout time.Duration

	run  Runner
	info *Info
}

// Find locates an interpreter. An empty path searches PATH for python3 and
// then python.
func Find(path string) (*Interpreter, error) {
	if path != "" {
		resolved, err := exec.LookPath(path)
		if err != nil {
			return nil, fmt.Errorf("python interpreter %q: %w", path, err)
		}
		return New(resolved, nil), nil
	}
	for _, name := range candidates {
		if resolved, err := exec.LookPath(name); err == nil {
			return New(resolved, nil), nil
		}
	}
	return nil, fmt.Errorf("no python interpreter found on PATH (tried %s)", strings.Join(candidates, ", "))
}

// New returns an interpreter for path. A nil runner executes real processes.
func New(path string, run Runner) *Interpreter {
	if run == nil {
		run = execRunner
	}
	return &Interpreter{Path: path, Timeout: DefaultTimeout, run: run}
}

// Describe queries the interpreter once and memoizes the result.
func (i *Interpreter) Describe(ctx context.Context) (*Info, error) {
	if i.info != nil {
		return i.info, nil
	}
	ctx, cancel := context.WithTimeout(ctx, i.Timeout)
	defer cancel()

	out, err := i.run(ctx, i.Path, "-I", "-c", describeScript)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", i.Path, err)
	}
	var info Info
	if err := json.Unmarshal(bytes.TrimSpace(out), &info); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", i.Path, err)
	}
	if info.Version == "" {
		return nil, fmt.Errorf("query %s: no version reported", i.Path)
	}
	info.SitePackages = dedupe(info.SitePackages)
	i.info = &info
	return i.info, nil
}

// Version returns the interpreter's "major.minor" version.
func (i *Interpreter) Version(ctx context.Context) (string, error) {
	info, err := i.Describe(ctx)
	if err != nil {
		return "", err
	}
	return info.MinorVersion(), nil
}

// BuiltinModules returns the names of modules compiled into the interpreter.
func (i *Interpreter) BuiltinModules(ctx context.Context) ([]string, error) {
	info, err := i.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return info.Builtins, nil
}

// SitePackages returns the directories the interpreter installs packages to.
func (i *Interpreter) SitePackages(ctx context.Context) ([]string, error) {
	info, err := i.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return info.SitePackages, nil
}

// VirtualEnvSitePackages returns the site-packages directories of the
// virtual environment rooted at venv: lib/pythonX.Y/site-packages on POSIX
// layouts and Lib/site-packages on Windows.
func VirtualEnvSitePackages(venv string) []string {
	var dirs []string
	for _, pattern := range []string{
		filepath.Join(venv, "lib", "python*", "site-packages"),
		filepath.Join(venv, "Lib", "site-packages"),
	} {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && fi.IsDir() {
				dirs = append(dirs, m)
			}
		}
	}
	return dedupe(dirs)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return out, err
	}
	return out, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
