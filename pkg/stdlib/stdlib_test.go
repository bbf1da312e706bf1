package stdlib

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
)

func newTestClassifier(t *testing.T, opts Options) (*Classifier, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts.Logger = log.New(&buf)
	if opts.GOOS == "" {
		opts.GOOS = "linux"
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &buf
}

func TestClassifier_Versions(t *testing.T) {
	tests := []struct {
		version string
		std     []string
		notStd  []string
	}{
		{"3.8", []string{"os", "sys", "distutils", "asyncore", "binhex", "dummy_threading"}, []string{"zoneinfo", "tomllib"}},
		{"3.9", []string{"zoneinfo", "graphlib", "parser"}, []string{"dummy_threading", "tomllib"}},
		{"3.10", []string{"zoneinfo", "binhex"}, []string{"parser", "symbol", "formatter"}},
		{"3.11.4", []string{"tomllib", "distutils", "imp"}, []string{"binhex"}},
		{"3.12", []string{"tomllib", "telnetlib"}, []string{"distutils", "imp", "asynchat", "smtpd"}},
		{"3.13", []string{"json", "_pyrepl"}, []string{"telnetlib", "cgi", "crypt", "lib2to3", "imghdr"}},
		{"3.14", []string{"annotationlib", "compression"}, []string{"telnetlib"}},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			c, _ := newTestClassifier(t, Options{Version: tt.version})
			for _, name := range tt.std {
				if !c.IsStandard(name) {
					t.Errorf("IsStandard(%q) = false, want true", name)
				}
			}
			for _, name := range tt.notStd {
				if c.IsStandard(name) {
					t.Errorf("IsStandard(%q) = true, want false", name)
				}
			}
			if c.Fallback() {
				t.Error("Fallback() = true with embedded data")
			}
		})
	}
}

func TestClassifier_ThirdPartyNeverStandard(t *testing.T) {
	for _, v := range []string{"3.8", "3.9", "3.10", "3.11", "3.12", "3.13", "3.14"} {
		c, _ := newTestClassifier(t, Options{Version: v})
		for _, name := range []string{"requests", "numpy", "yaml", "PIL", "core"} {
			if c.IsStandard(name) {
				t.Errorf("%s: IsStandard(%q) = true", v, name)
			}
		}
	}
}

func TestClassifier_NearestOlderVersion(t *testing.T) {
	c, logs := newTestClassifier(t, Options{Version: "3.20.1"})
	if got := c.Version(); got != "3.14" {
		t.Errorf("Version() = %q, want 3.14", got)
	}
	if !strings.Contains(logs.String(), "newer than module data") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
	if !c.IsStandard("tomllib") {
		t.Error("newest list should include tomllib")
	}

	c, logs = newTestClassifier(t, Options{Version: "2.7"})
	if got := c.Version(); got != "3.8" {
		t.Errorf("Version() = %q, want 3.8", got)
	}
	if !strings.Contains(logs.String(), "older than module data") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
}

func TestClassifier_DefaultsToNewest(t *testing.T) {
	c, logs := newTestClassifier(t, Options{})
	if got := c.Version(); got != "3.14" {
		t.Errorf("Version() = %q, want 3.14", got)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected log output %q", logs.String())
	}
}

func TestClassifier_Platforms(t *testing.T) {
	tests := []struct {
		goos   string
		std    []string
		notStd []string
	}{
		{"linux", []string{"posix", "fcntl", "termios", "ossaudiodev"}, []string{"msvcrt", "winreg", "_scproxy"}},
		{"darwin", []string{"posix", "_scproxy"}, []string{"msvcrt", "ossaudiodev"}},
		{"windows", []string{"msvcrt", "winreg", "nt", "msilib"}, []string{"posix", "fcntl", "pwd"}},
		{"freebsd", []string{"posix", "grp"}, []string{"msvcrt", "ossaudiodev"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			c, _ := newTestClassifier(t, Options{Version: "3.12", GOOS: tt.goos})
			for _, name := range tt.std {
				if !c.IsStandard(name) {
					t.Errorf("IsStandard(%q) = false on %s", name, tt.goos)
				}
			}
			for _, name := range tt.notStd {
				if c.IsStandard(name) {
					t.Errorf("IsStandard(%q) = true on %s", name, tt.goos)
				}
			}
		})
	}
}

func TestClassifier_PlatformRemovals(t *testing.T) {
	c, _ := newTestClassifier(t, Options{Version: "3.13", GOOS: "windows"})
	if c.IsStandard("msilib") {
		t.Error("msilib was removed in 3.13")
	}
}

func TestClassifier_Fallback(t *testing.T) {
	builtins := func() ([]string, error) { return []string{"_custom_builtin"}, nil }
	c, logs := newTestClassifier(t, Options{
		Version:  "3.12",
		Data:     []byte("base = [unterminated"),
		Builtins: builtins,
	})
	if !c.Fallback() {
		t.Fatal("Fallback() = false for unreadable data")
	}
	for _, name := range []string{"os", "json", "_custom_builtin", "posix"} {
		if !c.IsStandard(name) {
			t.Errorf("IsStandard(%q) = false in fallback", name)
		}
	}
	if c.IsStandard("requests") {
		t.Error("IsStandard(requests) = true in fallback")
	}
	if !strings.Contains(logs.String(), "static standard-library list") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
	if c.Version() != "3.12" {
		t.Errorf("Version() = %q, want 3.12", c.Version())
	}
}

func TestClassifier_FallbackBuiltinsError(t *testing.T) {
	builtins := func() ([]string, error) { return nil, errors.New("no interpreter") }
	c, logs := newTestClassifier(t, Options{Data: []byte(`[base]`), Builtins: builtins})
	if !c.Fallback() || !c.IsStandard("sys") {
		t.Error("expected static fallback containing sys")
	}
	if !strings.Contains(logs.String(), "introspection failed") {
		t.Errorf("expected a warning, got %q", logs.String())
	}
}

func TestClassifier_CustomData(t *testing.T) {
	data := []byte(`
[base]
version = "3.10"
modules = ["os", "old"]

[[release]]
version = "3.12"
added = ["fresh"]
removed = ["old"]

[[release]]
version = "3.11"
added = ["mid"]
`)
	c, _ := newTestClassifier(t, Options{Version: "3.11", Data: data})
	if !c.IsStandard("mid") || !c.IsStandard("old") || c.IsStandard("fresh") {
		t.Errorf("3.11 modules = %v", c.Modules())
	}
	c, _ = newTestClassifier(t, Options{Version: "3.12", Data: data})
	if got := strings.Join(c.Modules(), ","); got != "fresh,mid,os" {
		t.Errorf("3.12 modules = %s", got)
	}
}

func TestNew_InvalidVersion(t *testing.T) {
	_, err := New(Options{Version: "latest"})
	if !reqerrors.Is(err, reqerrors.ErrCodeInvalidConfig) {
		t.Errorf("New error = %v, want %s", err, reqerrors.ErrCodeInvalidConfig)
	}
}

func TestParseVersion(t *testing.T) {
	tests := map[string]string{
		"3.13.0rc2": "3.13",
		"3.9":       "3.9",
		"3":         "3.0",
		" 3.11.2":   "3.11",
	}
	for in, want := range tests {
		v, err := ParseVersion(in)
		if err != nil {
			t.Errorf("ParseVersion(%q): %v", in, err)
			continue
		}
		if got := short(v); got != want {
			t.Errorf("ParseVersion(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewFromModules(t *testing.T) {
	c := NewFromModules("os", "sys")
	if !c.IsStandard("os") || c.IsStandard("requests") {
		t.Errorf("NewFromModules mismatch: %v", c.Modules())
	}
}
