package compat

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Pip probes compatibility by asking pip to resolve the package for the
// target version without installing anything:
//
//	python -m pip install --dry-run --no-deps --ignore-installed --quiet \
//	    --python-version X pkg
type Pip struct {
	Python  string        // interpreter that runs pip
	Timeout time.Duration // per-probe limit; zero means none

	run CommandRunner
}

// NewPip returns a pip prober using the given interpreter. A nil runner
// executes real processes.
func NewPip(python string, run CommandRunner) *Pip {
	if run == nil {
		run = combinedOutput
	}
	return &Pip{Python: python, run: run}
}

func (p *Pip) Name() string { return "pip" }

// noMatch marks pip output that confirms no distribution fits.
var noMatch = []string{
	"No matching distribution found",
	"Could not find a version that satisfies the requirement",
}

func (p *Pip) Probe(ctx context.Context, pkg, python string) (Result, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := p.run(ctx, p.Python, "-m", "pip", "install",
		"--dry-run", "--no-deps", "--ignore-installed", "--quiet",
		"--disable-pip-version-check", "--no-input",
		"--python-version", python, pkg)
	if err == nil {
		return Result{Status: Compatible}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return failed(pkg, ctxErr)
	}
	// Only a pip that ran and exited non-zero has output worth reading.
	var exitErr interface{ ExitCode() int }
	if !errors.As(err, &exitErr) {
		return failed(pkg, err)
	}

	text := string(out)
	if unreachable(text) {
		return failed(pkg, fmt.Errorf("package index unreachable: %s", lastError(text)))
	}
	for _, marker := range noMatch {
		if strings.Contains(text, marker) {
			return Result{Status: Incompatible, Reason: pipReason(text, python)}, nil
		}
	}
	return failed(pkg, fmt.Errorf("pip exited with %d: %s", exitErr.ExitCode(), lastError(text)))
}

// networkTrouble marks pip output from a run that never reached the index.
// pip still ends such runs with the noMatch lines, so these win.
var networkTrouble = []string{
	"NewConnectionError",
	"connection broken by",
	"ProxyError",
	"SSLError",
	"Retrying (Retry(",
}

func unreachable(out string) bool {
	for _, marker := range networkTrouble {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return strings.Contains(out, "(from versions: none)") && strings.Contains(out, "WARNING: Retrying")
}

// pipReason picks the most specific explanation from pip's output. The
// Requires-Python summary names the versions pip skipped; otherwise the
// "no matching distribution" line is used.
func pipReason(out, python string) string {
	var fallback string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "ERROR:"))
		switch {
		case strings.Contains(line, "require a different python version"):
			return line
		case fallback == "" && strings.Contains(line, noMatch[0]):
			fallback = line
		}
	}
	if fallback == "" {
		return "no distribution compatible with Python " + python
	}
	return fallback
}

func lastError(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no output"
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
