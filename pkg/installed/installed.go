// Package installed reports the versions of Python distributions installed
// in the local environment.
//
// Versions are read from distribution metadata on disk (*.dist-info/METADATA
// and *.egg-info/PKG-INFO) in the interpreter's site-packages directories.
// No Python code runs.
package installed

import (
	"bufio"
	"errors"
	"io/fs"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/integrations"
)

// Distribution is one installed distribution.
type Distribution struct {
	Name     string
	Version  string
	TopLevel []string // import names the distribution provides
	Path     string   // metadata directory or file
}

// Provider answers version queries against a snapshot of installed
// distributions.
type Provider struct {
	dists map[string]Distribution
}

// Empty returns a provider that knows no versions.
func Empty() *Provider {
	return &Provider{dists: map[string]Distribution{}}
}

// Scan reads distribution metadata from dirs. Earlier directories take
// precedence, mirroring interpreter search order. Unreadable directories and
// metadata are logged and skipped; if nothing is readable the provider knows
// no versions.
func Scan(dirs []string, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Default()
	}
	p := Empty()
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("cannot list installed packages",
					"dir", dir, "err", reqerrors.Wrap(reqerrors.ErrCodeVersionLookup, err, "read site-packages"))
			}
			continue
		}
		for _, e := range entries {
			d, ok, err := readEntry(dir, e)
			if err != nil {
				logger.Debug("skipping unreadable metadata", "path", filepath.Join(dir, e.Name()), "err", err)
				continue
			}
			if !ok {
				continue
			}
			key := integrations.NormalizePkgName(d.Name)
			if _, dup := p.dists[key]; !dup {
				p.dists[key] = d
			}
		}
	}
	logger.Debug("installed distributions", "count", len(p.dists))
	return p
}

// Version returns the installed version of pkg. Lookup is insensitive to
// case and to the "-", "_", "." separators.
func (p *Provider) Version(pkg string) (string, bool) {
	d, ok := p.dists[integrations.NormalizePkgName(pkg)]
	if !ok || d.Version == "" {
		return "", false
	}
	return d.Version, true
}

// Len returns the number of known distributions.
func (p *Provider) Len() int { return len(p.dists) }

// Distributions returns all known distributions sorted by name.
func (p *Provider) Distributions() []Distribution {
	out := make([]Distribution, 0, len(p.dists))
	for _, d := range p.dists {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Distribution) int {
		return strings.Compare(integrations.NormalizePkgName(a.Name), integrations.NormalizePkgName(b.Name))
	})
	return out
}

// TopLevel maps each import name to the distributions that provide it.
func (p *Provider) TopLevel() map[string][]string {
	m := make(map[string][]string)
	for _, d := range p.Distributions() {
		for _, name := range d.TopLevel {
			m[name] = append(m[name], d.Name)
		}
	}
	return m
}

func readEntry(dir string, e fs.DirEntry) (Distribution, bool, error) {
	name := e.Name()
	path := filepath.Join(dir, name)
	switch {
	case strings.HasSuffix(name, ".dist-info") && e.IsDir():
		return readMetadataDir(path, "METADATA", strings.TrimSuffix(name, ".dist-info"))
	case strings.HasSuffix(name, ".egg-info") && e.IsDir():
		return readMetadataDir(path, "PKG-INFO", strings.TrimSuffix(name, ".egg-info"))
	case strings.HasSuffix(name, ".egg-info"):
		d, err := readMetadataFile(path)
		if err != nil {
			return Distribution{}, false, err
		}
		fillFromDirName(&d, strings.TrimSuffix(name, ".egg-info"))
		d.Path = path
		return d, d.Name != "", nil
	}
	return Distribution{}, false, nil
}

func readMetadataDir(path, file, stem string) (Distribution, bool, error) {
	d, err := readMetadataFile(filepath.Join(path, file))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Distribution{}, false, err
	}
	fillFromDirName(&d, stem)
	d.Path = path
	d.TopLevel = readTopLevel(filepath.Join(path, "top_level.txt"))
	return d, d.Name != "", nil
}

// readMetadataFile parses the RFC 822 header block of a core metadata file.
func readMetadataFile(path string) (Distribution, error) {
	f, err := os.Open(path)
	if err != nil {
		return Distribution{}, err
	}
	defer f.Close()

	// A truncated or malformed header block still yields the fields read
	// before the problem.
	hdr, err := textproto.NewReader(bufio.NewReader(f)).ReadMIMEHeader()
	if err != nil && hdr.Get("Name") == "" {
		return Distribution{}, err
	}
	return Distribution{
		Name:    strings.TrimSpace(hdr.Get("Name")),
		Version: strings.TrimSpace(hdr.Get("Version")),
	}, nil
}

// fillFromDirName completes missing fields from a "name-version" stem.
func fillFromDirName(d *Distribution, stem string) {
	name, version, _ := strings.Cut(stem, "-")
	if d.Name == "" {
		d.Name = name
	}
	if d.Version == "" {
		d.Version = version
	}
}

func readTopLevel(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		// Entries may name nested packages ("google/protobuf"); only the
		// first segment is importable at top level.
		line = strings.TrimSpace(line)
		top, _, _ := strings.Cut(line, "/")
		if top != "" && !slices.Contains(names, top) {
			names = append(names, top)
		}
	}
	return names
}
