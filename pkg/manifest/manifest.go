// Package manifest renders and writes requirements manifests.
//
// Output is a pip requirements file. Compatible and unverified packages
// become requirement lines ("pkg" or "pkg==version"). Packages confirmed
// incompatible with the target Python are commented out with their reason
// and repeated in a leading notes block. Lines are sorted by package name
// case-insensitively, so identical input always renders identical bytes.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/reqscan/pkg/compat"
	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
)

// DefaultFilename is the manifest name used when no output path is given.
const DefaultFilename = "requirements.txt"

// Entry is one resolved package.
type Entry struct {
	Package string
	Version string // installed version; empty when not installed
	Status  compat.Status
	Reason  string   // explanation for Incompatible
	Imports []string // import names that resolved to Package
}

// Requirement returns the requirement specifier, pinned when a version is
// known.
func (e Entry) Requirement() string {
	if e.Version == "" {
		return e.Package
	}
	return e.Package + "==" + e.Version
}

// Options controls rendering.
type Options struct {
	Python string // target version named in the notes header
	NoPin  bool   // omit versions
}

// Sort orders entries by package name, case-insensitively, with the exact
// name breaking ties.
func Sort(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := strings.Compare(strings.ToLower(a.Package), strings.ToLower(b.Package)); c != 0 {
			return c
		}
		return strings.Compare(a.Package, b.Package)
	})
}

// Render produces the manifest text. The input slice is not modified.
func Render(entries []Entry, opts Options) []byte {
	sorted := slices.Clone(entries)
	Sort(sorted)
	if opts.NoPin {
		for i := range sorted {
			sorted[i].Version = ""
		}
	}

	var buf bytes.Buffer
	var incompatible []Entry
	for _, e := range sorted {
		if e.Status == compat.Incompatible {
			incompatible = append(incompatible, e)
		}
	}
	if len(incompatible) > 0 {
		if opts.Python != "" {
			fmt.Fprintf(&buf, "# Compatibility notes (Python %s):\n", opts.Python)
		} else {
			buf.WriteString("# Compatibility notes:\n")
		}
		for _, e := range incompatible {
			fmt.Fprintf(&buf, "#   %s: %s\n", e.Package, reason(e))
		}
		buf.WriteString("\n")
	}

	for _, e := range sorted {
		if e.Status == compat.Incompatible {
			fmt.Fprintf(&buf, "# %s  # %s\n", e.Requirement(), reason(e))
			continue
		}
		buf.WriteString(e.Requirement())
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func reason(e Entry) string {
	r := strings.Join(strings.Fields(e.Reason), " ")
	if r == "" {
		return "incompatible"
	}
	return r
}

// Write replaces the file at path with data. The content goes to a
// temporary file in the same directory first, so readers see either the old
// manifest or the new one.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".requirements-*")
	if err != nil {
		return reqerrors.Wrap(reqerrors.ErrCodeManifestWrite, err, "write %s", path)
	}
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return reqerrors.Wrap(reqerrors.ErrCodeManifestWrite, err, "write %s", path)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return reqerrors.Wrap(reqerrors.ErrCodeManifestWrite, err, "write %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return reqerrors.Wrap(reqerrors.ErrCodeManifestWrite, err, "write %s", path)
	}
	return nil
}
