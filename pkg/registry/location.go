package registry

import (
	"net/url"
	"path"
	"strings"
)

var pathPrefixes = []string{"/", "./", "../"}

// IsPath reports whether s is a filesystem path specifier.
func IsPath(s string) bool {
	for _, p := range pathPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// IsURL reports whether s is an absolute http, https or file URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" && u.Scheme != "file" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "file":
		return true
	}
	return false
}

// IsLocation reports whether s already names where an archive lives.
func IsLocation(s string) bool {
	return IsPath(s) || IsURL(s)
}

// TarballURL returns the registry tarball URL for an exact version.
// Scoped packages keep their scope in the path and drop it from the file
// name, as the public registry does.
func TarballURL(base, name, version string) string {
	return strings.TrimRight(base, "/") + "/" + name + "/-/" + path.Base(name) + "-" + version + ".tgz"
}

// MetadataURL returns the URL of the registry document listing every
// published version of name.
func MetadataURL(base, name string) string {
	if strings.HasPrefix(name, "@") {
		name = strings.Replace(name, "/", "%2f", 1)
	}
	return strings.TrimRight(base, "/") + "/" + name
}
