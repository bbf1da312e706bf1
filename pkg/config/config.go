// Package config loads scan settings from the [tool.reqscan] table of a
// project's pyproject.toml.
//
//	[tool.reqscan]
//	python = "3.11"
//	internal = ["core", "api"]
//	exclude = ["tests/*"]
//	probe = "pip"
//	timeout = "2m"
//
//	[tool.reqscan.aliases]
//	cv2 = "opencv-python-headless"
//
// Command-line flags override file settings.
package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
)

// Filename is the project file settings are read from.
const Filename = "pyproject.toml"

// DefaultOutput is the manifest name used when no output is configured.
const DefaultOutput = "requirements.txt"

// Probe modes.
const (
	ProbePyPI = "pypi"
	ProbePip  = "pip"
	ProbeOff  = "off"
)

// Defaults.
const (
	DefaultProbe        = ProbePyPI
	DefaultTimeout      = 2 * time.Minute
	DefaultProbeTimeout = 30 * time.Second
)

// Config holds scan settings.
type Config struct {
	Python       string            `toml:"python"`
	Interpreter  string            `toml:"interpreter"`
	Output       string            `toml:"output"`
	Internal     []string          `toml:"internal"`
	Exclude      []string          `toml:"exclude"`
	Probe        string            `toml:"probe"`
	NoPin        bool              `toml:"no-pin"`
	NoLocal      bool              `toml:"no-local"`
	SitePackages []string          `toml:"site-packages"`
	Workers      int               `toml:"workers"`
	Timeout      time.Duration     `toml:"timeout"`
	ProbeTimeout time.Duration     `toml:"probe-timeout"`
	NoCache      bool              `toml:"no-cache"`
	CacheURL     string            `toml:"cache-url"`
	AliasFile    string            `toml:"alias-file"`
	Aliases      map[string]string `toml:"aliases"`

	// Dir is the directory relative paths are resolved against.
	Dir string `toml:"-"`
}

// Default returns settings for a project without configuration.
func Default(dir string) *Config {
	return &Config{
		Probe:        DefaultProbe,
		Workers:      runtime.NumCPU(),
		Timeout:      DefaultTimeout,
		ProbeTimeout: DefaultProbeTimeout,
		Dir:          dir,
	}
}

type pyproject struct {
	Tool struct {
		Reqscan toml.Primitive `toml:"reqscan"`
	} `toml:"tool"`
}

// Load reads settings from dir/pyproject.toml. A missing file, or one
// without a [tool.reqscan] table, yields [Default]. Unknown keys are
// rejected so typos do not pass silently.
func Load(dir string) (*Config, error) {
	cfg := Default(dir)
	path := filepath.Join(dir, Filename)

	var doc pyproject
	md, err := toml.DecodeFile(path, &doc)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if !md.IsDefined("tool", "reqscan") {
		return cfg, nil
	}
	if err := md.PrimitiveDecode(doc.Tool.Reqscan, cfg); err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "parse [tool.reqscan] in %s", path)
	}
	for _, key := range md.Undecoded() {
		if len(key) > 2 && key[0] == "tool" && key[1] == "reqscan" {
			return nil, reqerrors.New(reqerrors.ErrCodeInvalidConfig, "unknown setting %q in %s", key.String(), path)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings for consistency.
func (c *Config) Validate() error {
	switch c.Probe {
	case ProbePyPI, ProbePip, ProbeOff:
	default:
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "probe must be one of %s, %s, %s (got %q)",
			ProbePyPI, ProbePip, ProbeOff, c.Probe)
	}
	if c.Workers < 1 {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "workers must be at least 1 (got %d)", c.Workers)
	}
	if c.Timeout < 0 || c.ProbeTimeout < 0 {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "timeouts cannot be negative")
	}
	for _, name := range c.Internal {
		if err := reqerrors.ValidateImportName(name); err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "internal")
		}
	}
	if c.CacheURL != "" && !strings.HasPrefix(c.CacheURL, "redis://") && !strings.HasPrefix(c.CacheURL, "rediss://") {
		return reqerrors.New(reqerrors.ErrCodeInvalidConfig, "cache-url must be a redis:// or rediss:// URL")
	}
	return nil
}

// Path resolves p against Dir unless it is absolute or empty.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// OutputPath returns where the manifest is written.
func (c *Config) OutputPath() string {
	if c.Output == "" {
		return filepath.Join(c.Dir, DefaultOutput)
	}
	return c.Path(c.Output)
}
