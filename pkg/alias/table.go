// Package alias maps import names to the distribution names they are
// published under on the package index.
//
// Most packages are imported under their distribution name, so the mapping
// is total: names no table covers resolve to themselves. Tables come from a
// built-in list of well-known mismatches, the [tool.reqscan.aliases] table of
// pyproject.toml, YAML alias files, and top_level.txt metadata of installed
// distributions.
package alias

import (
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	reqerrors "github.com/matzehuels/reqscan/pkg/errors"
	"github.com/matzehuels/reqscan/pkg/integrations"
)

// Table maps an import name to a package identifier.
type Table map[string]string

var builtin = Table{
	"Crypto":                "pycryptodome",
	"Image":                 "Pillow",
	"Levenshtein":           "python-Levenshtein",
	"MySQLdb":               "mysqlclient",
	"OpenSSL":               "pyOpenSSL",
	"PIL":                   "Pillow",
	"Xlib":                  "python-xlib",
	"attr":                  "attrs",
	"bs4":                   "beautifulsoup4",
	"cv2":                   "opencv-python",
	"dateutil":              "python-dateutil",
	"discord":               "discord.py",
	"dns":                   "dnspython",
	"docx":                  "python-docx",
	"dotenv":                "python-dotenv",
	"edge_tts":              "edge-tts",
	"engineio":              "python-engineio",
	"fitz":                  "PyMuPDF",
	"flask_cors":            "flask-cors",
	"flask_socketio":        "flask-socketio",
	"flask_sqlalchemy":      "Flask-SQLAlchemy",
	"geventwebsocket":       "gevent-websocket",
	"gi":                    "PyGObject",
	"git":                   "GitPython",
	"jose":                  "python-jose",
	"jwt":                   "PyJWT",
	"kafka":                 "kafka-python",
	"magic":                 "python-magic",
	"multipart":             "python-multipart",
	"nacl":                  "PyNaCl",
	"pkg_resources":         "setuptools",
	"pptx":                  "python-pptx",
	"sentence_transformers": "sentence-transformers",
	"serial":                "pyserial",
	"skimage":               "scikit-image",
	"sklearn":               "scikit-learn",
	"slugify":               "python-slugify",
	"socketio":              "python-socketio",
	"socks":                 "PySocks",
	"speech_recognition":    "SpeechRecognition",
	"telegram":              "python-telegram-bot",
	"usb":                   "pyusb",
	"websocket":             "websocket-client",
	"win32api":              "pywin32",
	"win32con":              "pywin32",
	"wx":                    "wxPython",
	"yaml":                  "PyYAML",
	"zmq":                   "pyzmq",
}

// Builtin returns a copy of the built-in alias table.
func Builtin() Table {
	t := make(Table, len(builtin))
	for k, v := range builtin {
		t[k] = v
	}
	return t
}

// Validate checks every key is an import name and every value a package
// name, and that no two keys differing only in case disagree on the target.
func (t Table) Validate() error {
	folded := make(map[string]string, len(t))
	for _, name := range t.sortedKeys() {
		pkg := t[name]
		if err := reqerrors.ValidateImportName(name); err != nil {
			return err
		}
		if err := reqerrors.ValidatePackageName(pkg); err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "alias %s", name)
		}
		key := strings.ToLower(name)
		if prev, ok := folded[key]; ok && !samePackage(t[prev], pkg) {
			return reqerrors.New(reqerrors.ErrCodeAliasConflict,
				"import name %q maps to both %q and %q (via %q)", name, pkg, t[prev], prev)
		}
		folded[key] = name
	}
	return nil
}

// Merge layers user tables over base. Each user table must be valid on its
// own, and user tables must agree with one another: an import name mapped to
// two different packages is an [reqerrors.ErrCodeAliasConflict]. User tables
// replace base entries freely.
func Merge(base Table, user ...Table) (Table, error) {
	out := make(Table, len(base))
	for k, v := range base {
		out[k] = v
	}
	seen := make(map[string]string)
	for _, t := range user {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		for _, name := range t.sortedKeys() {
			pkg := t[name]
			key := strings.ToLower(name)
			if prev, ok := seen[key]; ok && !samePackage(prev, pkg) {
				return nil, reqerrors.New(reqerrors.ErrCodeAliasConflict,
					"import name %q maps to both %q and %q", name, prev, pkg)
			}
			seen[key] = pkg
			out[name] = pkg
		}
	}
	return out, nil
}

type aliasFile struct {
	Aliases Table `yaml:"aliases"`
}

// LoadYAML reads an alias file of the form:
//
//	aliases:
//	  PIL: Pillow
//	  yaml: PyYAML
func LoadYAML(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "read alias file")
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidConfig, err, "parse alias file %s", path)
	}
	if f.Aliases == nil {
		f.Aliases = Table{}
	}
	if err := f.Aliases.Validate(); err != nil {
		return nil, err
	}
	return f.Aliases, nil
}

// Discovered derives a table from installed distribution metadata: each
// top-level import name provided by exactly one distribution maps to it.
// Names provided by several distributions are ambiguous and left out.
func Discovered(topLevel map[string][]string) Table {
	t := make(Table)
	for name, dists := range topLevel {
		if len(dists) != 1 || reqerrors.ValidateImportName(name) != nil {
			continue
		}
		t[name] = dists[0]
	}
	return t
}

func (t Table) sortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func samePackage(a, b string) bool {
	return integrations.NormalizePkgName(a) == integrations.NormalizePkgName(b)
}
