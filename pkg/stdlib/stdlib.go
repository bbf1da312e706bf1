// Package stdlib classifies import names as Python standard-library modules.
//
// A [Classifier] is built once per scan for one target runtime and then
// queried for every import name. It is an ordinary value: nothing is
// memoized at package level, so tests construct classifiers over fixed
// module lists.
//
// The authoritative source is a version-indexed module list (embedded by
// default). When that list is unavailable the classifier falls back to a
// static list plus the builtin modules of the running interpreter. When the
// list does not cover the requested version, the nearest older covered
// version is used instead.
package stdlib

import (
	_ "embed"
	"fmt"
	"regexp"
	"runtime"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
)

//go:embed modules.toml
var embedded []byte

// Options configures a [Classifier].
type Options struct {
	// Version is the target runtime, e.g. "3.11" or "3.11.4".
	// Empty selects the newest covered version.
	Version string

	// GOOS selects platform-conditional modules. Defaults to runtime.GOOS.
	GOOS string

	// Data replaces the embedded module list.
	Data []byte

	// Builtins lists the running interpreter's builtin modules. It is only
	// consulted when the module list is unavailable.
	Builtins func() ([]string, error)

	Logger *log.Logger
}

// Classifier answers whether a name belongs to the standard library.
type Classifier struct {
	version  string
	fallback bool
	modules  map[string]struct{}
}

type moduleList struct {
	Base struct {
		Version string   `toml:"version"`
		Modules []string `toml:"modules"`
	} `toml:"base"`
	Platform map[string]struct {
		Modules []string `toml:"modules"`
	} `toml:"platform"`
	Release []release `toml:"release"`
}

type release struct {
	Version string   `toml:"version"`
	Added   []string `toml:"added"`
	Removed []string `toml:"removed"`
}

var minorRE = regexp.MustCompile(`^\s*(\d+)(?:\.(\d+))?`)

// ParseVersion reduces a runtime version token such as "3.12.1" or
// "3.13.0rc2" to its major.minor release.
func ParseVersion(v string) (*semver.Version, error) {
	m := minorRE.FindStringSubmatch(v)
	if m == nil {
		return nil, reqerrors.New(reqerrors.ErrCodeInvalidConfig, "invalid python version %q", v)
	}
	minor := m[2]
	if minor == "" {
		minor = "0"
	}
	return semver.NewVersion(m[1] + "." + minor)
}

// New builds a classifier. It fails only when opts.Version is malformed;
// missing or outdated module data degrades with a logged warning.
func New(opts Options) (*Classifier, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	var target *semver.Version
	if opts.Version != "" {
		v, err := ParseVersion(opts.Version)
		if err != nil {
			return nil, err
		}
		target = v
	}

	data := opts.Data
	if data == nil {
		data = embedded
	}
	list, err := decode(data)
	if err != nil {
		err = reqerrors.Wrap(reqerrors.ErrCodeClassificationData, err, "standard-library module list unavailable")
		logger.Warn("using static standard-library list", "err", err)
		return newFallback(target, goos, opts.Builtins, logger), nil
	}
	return list.classifier(target, goos, logger), nil
}

func decode(data []byte) (*moduleList, error) {
	var list moduleList
	if _, err := toml.Decode(string(data), &list); err != nil {
		return nil, err
	}
	if list.Base.Version == "" || len(list.Base.Modules) == 0 {
		return nil, fmt.Errorf("module list has no base release")
	}
	for _, r := range list.Release {
		if _, err := ParseVersion(r.Version); err != nil {
			return nil, fmt.Errorf("release %q: %w", r.Version, err)
		}
	}
	slices.SortFunc(list.Release, func(a, b release) int {
		va, _ := ParseVersion(a.Version)
		vb, _ := ParseVersion(b.Version)
		return va.Compare(vb)
	})
	return &list, nil
}

// classifier applies releases up to the nearest covered version not newer
// than target.
func (l *moduleList) classifier(target *semver.Version, goos string, logger *log.Logger) *Classifier {
	base, err := ParseVersion(l.Base.Version)
	if err != nil {
		base = semver.MustParse("0.0")
	}
	newest := base
	if n := len(l.Release); n > 0 {
		newest, _ = ParseVersion(l.Release[n-1].Version)
	}

	effective := newest
	switch {
	case target == nil:
	case target.LessThan(base):
		logger.Warn("python version older than module data, using oldest known",
			"requested", short(target), "using", short(base),
			"code", reqerrors.ErrCodeClassificationData)
		effective = base
	case target.GreaterThan(newest):
		logger.Warn("python version newer than module data, using nearest older",
			"requested", short(target), "using", short(newest),
			"code", reqerrors.ErrCodeClassificationData)
	default:
		effective = target
	}

	modules := make(map[string]struct{}, len(l.Base.Modules))
	add(modules, l.Base.Modules)
	for _, key := range platformKeys(goos) {
		add(modules, l.Platform[key].Modules)
	}
	version := base
	for _, r := range l.Release {
		v, _ := ParseVersion(r.Version)
		if v.GreaterThan(effective) {
			break
		}
		add(modules, r.Added)
		for _, name := range r.Removed {
			delete(modules, name)
		}
		version = v
	}
	return &Classifier{version: short(version), modules: modules}
}

// IsStandard reports whether name is a top-level standard-library module.
func (c *Classifier) IsStandard(name string) bool {
	_, ok := c.modules[name]
	return ok
}

// Version returns the covered version the classifier uses. The static
// fallback echoes the requested version.
func (c *Classifier) Version() string { return c.version }

// Fallback reports whether the static fallback list is in use.
func (c *Classifier) Fallback() bool { return c.fallback }

// Modules returns the known module names in sorted order.
func (c *Classifier) Modules() []string {
	out := make([]string, 0, len(c.modules))
	for name := range c.modules {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// NewFromModules returns a classifier over a fixed module list.
func NewFromModules(names ...string) *Classifier {
	modules := make(map[string]struct{}, len(names))
	add(modules, names)
	return &Classifier{modules: modules}
}

func add(set map[string]struct{}, names []string) {
	for _, n := range names {
		set[n] = struct{}{}
	}
}

func short(v *semver.Version) string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// platformKeys maps a GOOS onto the platform sections of the module list.
func platformKeys(goos string) []string {
	switch goos {
	case "windows":
		return []string{"windows"}
	case "darwin", "ios":
		return []string{"unix", "darwin"}
	case "linux", "android":
		return []string{"unix", "linux"}
	case "js", "wasip1", "plan9":
		return nil
	default:
		return []string{"unix"}
	}
}
