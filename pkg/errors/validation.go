package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// pythonPackageNameRegex matches valid Python distribution names (PEP 508).
var pythonPackageNameRegex = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// importNameRegex matches a bare top-level Python identifier.
var importNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidatePackageName validates a Python distribution name per PEP 508.
// Control characters and path separators are rejected before the pattern
// check so error messages point at the offending character.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "package name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidConfig, "package name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "package name contains invalid control characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidConfig, "package name cannot contain path separators: %q", name)
	}
	if !pythonPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid Python package name: %q", name)
	}
	return nil
}

// ValidateImportName validates a top-level import name: a non-empty Python
// identifier without dots or path separators.
func ValidateImportName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "import name cannot be empty")
	}
	if !importNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid import name: %q", name)
	}
	return nil
}

// ValidateRoot validates a scan root given on the command line.
func ValidateRoot(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "root directory cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' {
			return New(ErrCodeInvalidPath, "root directory contains a null byte")
		}
	}
	return nil
}
