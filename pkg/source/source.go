// Package source enumerates Python source files under a project root.
package source

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// DefaultSuffix selects Python source files.
const DefaultSuffix = ".py"

// SkipDirs are directory names never descended into: VCS metadata, caches,
// virtual environments and build output contain code that is not the
// project's own.
var SkipDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".nox":          true,
	".eggs":         true,
	".mypy_cache":   true,
	".pytest_cache": true,
	"node_modules":  true,
	"site-packages": true,
	"build":         true,
	"dist":          true,
}

// Options controls enumeration.
type Options struct {
	Suffix  string               // file suffix to match (default ".py")
	Exclude []string             // filepath.Match patterns against root-relative slash paths
	Warn    func(string, ...any) // called for unreadable entries (optional)
}

// Files returns a lazy sequence of source file paths under root.
//
// Unreadable directories and files are reported through opts.Warn and
// skipped; enumeration never stops early because of them. The sequence
// yields paths in lexical order, which keeps scan logs stable.
func Files(root string, opts Options) iter.Seq[string] {
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}

	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				warn("skipping %s: %v", path, err)
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			rel := relSlash(root, path)
			if d.IsDir() {
				if path != root && (SkipDirs[d.Name()] || excluded(rel, opts.Exclude)) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), suffix) {
				return nil
			}
			if excluded(rel, opts.Exclude) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// excluded matches rel and each of its parent prefixes against patterns, so
// "tests" excludes everything below tests/ and "*/migrations" any
// second-level migrations directory.
func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(p), "/")
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p, filepath.Base(rel)); ok && !strings.Contains(p, "/") {
			return true
		}
	}
	return false
}
