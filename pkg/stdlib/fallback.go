package stdlib

import (
	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
)

// staticModules is used when no module list can be loaded. Builtin modules
// of the running interpreter are added to it.
var staticModules = []string{
	"__future__", "abc", "argparse", "array", "ast", "asyncio", "atexit",
	"base64", "binascii", "bisect", "builtins", "bz2", "calendar", "cmath",
	"cmd", "code", "codecs", "collections", "colorsys", "concurrent",
	"configparser", "contextlib", "contextvars", "copy", "copyreg", "csv",
	"ctypes", "dataclasses", "datetime", "dbm", "decimal", "difflib", "dis",
	"doctest", "email", "encodings", "enum", "errno", "faulthandler",
	"filecmp", "fileinput", "fnmatch", "fractions", "ftplib", "functools",
	"gc", "getopt", "getpass", "gettext", "glob", "gzip", "hashlib", "heapq",
	"hmac", "html", "http", "imaplib", "importlib", "inspect", "io",
	"ipaddress", "itertools", "json", "keyword", "linecache", "locale",
	"logging", "lzma", "marshal", "math", "mimetypes", "mmap",
	"multiprocessing", "numbers", "operator", "optparse", "os", "pathlib",
	"pdb", "pickle", "pkgutil", "platform", "plistlib", "poplib", "pprint",
	"profile", "pstats", "py_compile", "pyclbr", "pydoc", "queue", "quopri",
	"random", "re", "reprlib", "rlcompleter", "runpy", "sched", "secrets",
	"select", "selectors", "shelve", "shlex", "shutil", "signal", "site",
	"smtplib", "socket", "socketserver", "sqlite3", "ssl", "stat",
	"statistics", "string", "stringprep", "struct", "subprocess", "symtable",
	"sys", "sysconfig", "tabnanny", "tarfile", "tempfile", "textwrap",
	"threading", "time", "timeit", "tkinter", "token", "tokenize", "trace",
	"traceback", "tracemalloc", "types", "typing", "unicodedata", "unittest",
	"urllib", "uuid", "venv", "warnings", "wave", "weakref", "webbrowser",
	"wsgiref", "xml", "xmlrpc", "zipapp", "zipfile", "zipimport", "zlib",
}

var staticPlatform = map[string][]string{
	"windows": {"msvcrt", "nt", "winreg", "winsound"},
	"unix":    {"fcntl", "grp", "posix", "pty", "pwd", "readline", "resource", "syslog", "termios", "tty"},
	"darwin":  {"_scproxy"},
}

func newFallback(target *semver.Version, goos string, builtins func() ([]string, error), logger *log.Logger) *Classifier {
	modules := make(map[string]struct{}, len(staticModules))
	add(modules, staticModules)
	for _, key := range platformKeys(goos) {
		add(modules, staticPlatform[key])
	}
	if builtins != nil {
		names, err := builtins()
		if err != nil {
			logger.Warn("builtin module introspection failed", "err", err)
		}
		add(modules, names)
	}
	c := &Classifier{fallback: true, modules: modules}
	if target != nil {
		c.version = short(target)
	}
	return c
}
