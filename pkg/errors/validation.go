package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name before it is used as a
// directory under a store. It rejects names that could escape the store or
// inject control sequences into logs.
//
// The rules are conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, backslashes)
//   - Maximum length of 214 characters (the npm registry limit)
//   - Shape of an npm name: "name" or "@scope/name"
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	const maxNameLength = 214
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidPackage, "package name too long (max %d characters): %q", maxNameLength, name[:32]+"...")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name %q contains invalid characters: %q", name, pattern)
		}
	}

	if !packageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid package name: %q", name)
	}
	return nil
}

// packageNameRegex matches npm-style package names. Uppercase letters are
// accepted because legacy registry packages still use them.
var packageNameRegex = regexp.MustCompile(`^(@[A-Za-z0-9-~][A-Za-z0-9-._~]*/)?[A-Za-z0-9-~_][A-Za-z0-9-._~]*$`)

// ValidateBinName validates an executable name declared in a manifest's
// "bin" field. The name becomes a file directly inside a .bin directory, so
// it must be a single path segment.
func ValidateBinName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidManifest, "executable name cannot be empty")
	}
	if name == "." || name == ".." {
		return New(ErrCodeInvalidManifest, "invalid executable name: %q", name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return New(ErrCodeInvalidManifest, "executable name %q cannot contain path separators", name)
	}
	return nil
}

// ValidateRelativePath validates a path declared inside a manifest (for
// example a bin script) that must stay within the package directory.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - No absolute paths
//   - No ".." segments
func ValidateRelativePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidManifest, "path cannot be empty")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidManifest, "path %q contains invalid characters", path)
		}
	}

	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return New(ErrCodeInvalidManifest, "path %q must be relative", path)
	}

	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return New(ErrCodeInvalidManifest, "path %q cannot contain path traversal sequences (..)", path)
		}
	}
	return nil
}
