package interp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleOutput = `{"version": "3.11.7", "builtins": ["_abc", "sys"], "site_packages": ["/venv/lib/python3.11/site-packages", "/venv/lib/python3.11/site-packages", "/home/u/.local/lib/python3.11/site-packages"], "platform": "linux"}
`

func fakeRunner(out string, err error, calls *int) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls++
		return []byte(out), err
	}
}

func TestDescribe(t *testing.T) {
	var calls int
	py := New("/usr/bin/python3", fakeRunner(sampleOutput, nil, &calls))
	ctx := context.Background()

	v, err := py.Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "3.11" {
		t.Errorf("Version = %q, want 3.11", v)
	}

	builtins, err := py.BuiltinModules(ctx)
	if err != nil {
		t.Fatalf("BuiltinModules: %v", err)
	}
	if !reflect.DeepEqual(builtins, []string{"_abc", "sys"}) {
		t.Errorf("BuiltinModules = %v", builtins)
	}

	sp, err := py.SitePackages(ctx)
	if err != nil {
		t.Fatalf("SitePackages: %v", err)
	}
	want := []string{"/venv/lib/python3.11/site-packages", "/home/u/.local/lib/python3.11/site-packages"}
	if !reflect.DeepEqual(sp, want) {
		t.Errorf("SitePackages = %v, want %v", sp, want)
	}

	if calls != 1 {
		t.Errorf("interpreter ran %d times, want 1", calls)
	}
}

func TestDescribeErrors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"process failure", "", errors.New("exit status 1")},
		{"garbage output", "Traceback (most recent call last):", nil},
		{"missing version", `{"builtins": []}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			py := New("python3", fakeRunner(tt.out, tt.err, &calls))
			if _, err := py.Describe(context.Background()); err == nil {
				t.Error("Describe succeeded, want error")
			}
		})
	}
}

func TestMinorVersion(t *testing.T) {
	tests := map[string]string{
		"3.12.1": "3.12",
		"3.9.0":  "3.9",
		"3":      "3",
	}
	for in, want := range tests {
		info := &Info{Version: in}
		if got := info.MinorVersion(); got != want {
			t.Errorf("MinorVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindMissing(t *testing.T) {
	if _, err := Find("definitely-not-a-python-binary"); err == nil {
		t.Error("Find succeeded for a missing binary")
	}
}

func TestVirtualEnvSitePackages(t *testing.T) {
	venv := t.TempDir()
	posix := filepath.Join(venv, "lib", "python3.12", "site-packages")
	if err := os.MkdirAll(posix, 0o755); err != nil {
		t.Fatal(err)
	}
	// A file matching the pattern is not a site-packages directory.
	if err := os.MkdirAll(filepath.Join(venv, "lib", "python3.11"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(venv, "lib", "python3.11", "site-packages"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got := VirtualEnvSitePackages(venv)
	if !reflect.DeepEqual(got, []string{posix}) {
		t.Errorf("VirtualEnvSitePackages = %v, want [%s]", got, posix)
	}

	if got := VirtualEnvSitePackages(filepath.Join(venv, "missing")); len(got) != 0 {
		t.Errorf("VirtualEnvSitePackages(missing) = %v, want none", got)
	}
}

func TestVirtualEnvSitePackages_Windows(t *testing.T) {
	venv := t.TempDir()
	win := filepath.Join(venv, "Lib", "site-packages")
	if err := os.MkdirAll(win, 0o755); err != nil {
		t.Fatal(err)
	}
	got := VirtualEnvSitePackages(venv)
	if len(got) != 1 || !sameDir(t, got[0], win) {
		t.Errorf("VirtualEnvSitePackages = %v, want [%s]", got, win)
	}
}

// sameDir tolerates case-insensitive filesystems where "lib" also matches.
func sameDir(t *testing.T, a, b string) bool {
	t.Helper()
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	return err == nil && os.SameFile(fa, fb)
}
