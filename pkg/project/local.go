package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/source"
)

// LocalModules discovers the top-level importable names a project provides:
// modules and packages directly under root and under root/src, plus the
// import form of the distribution name declared in pyproject.toml.
func LocalModules(root string) ([]string, error) {
	found := make(map[string]struct{})
	if err := scanDir(root, found); err != nil {
		return nil, err
	}
	if err := scanDir(filepath.Join(root, "src"), found); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	name, err := distributionName(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return nil, err
	}
	if name != "" {
		found[name] = struct{}{}
	}

	out := make([]string, 0, len(found))
	for n := range found {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

func scanDir(dir string, found map[string]struct{}) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			if name == "src" || source.SkipDirs[name] || reqerrors.ValidateImportName(name) != nil {
				continue
			}
			if hasSource(filepath.Join(dir, name)) {
				found[name] = struct{}{}
			}
		case strings.HasSuffix(name, source.DefaultSuffix):
			stem := strings.TrimSuffix(name, source.DefaultSuffix)
			if stem == "setup" || stem == "conftest" || reqerrors.ValidateImportName(stem) != nil {
				continue
			}
			found[stem] = struct{}{}
		}
	}
	return nil
}

// hasSource reports whether dir directly contains a Python file, which makes
// it a regular or namespace package.
func hasSource(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), source.DefaultSuffix) {
			return true
		}
	}
	return false
}

type pyproject struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// distributionName returns the import form of the project name ("my-app"
// becomes "my_app"), or "" when pyproject.toml is absent or unnamed.
func distributionName(path string) (string, error) {
	var p pyproject
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	name := p.Project.Name
	if name == "" {
		name = p.Tool.Poetry.Name
	}
	name = strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToLower(name))
	if reqerrors.ValidateImportName(name) != nil {
		return "", nil
	}
	return name, nil
}
