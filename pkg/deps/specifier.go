package deps

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/palace/pkg/registry"
)

// Kind classifies a specifier string.
type Kind int

const (
	KindInvalid Kind = iota
	KindPath
	KindURL
	KindExact
	KindRange
	KindTag
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindPath:    "path",
	KindURL:     "url",
	KindExact:   "exact",
	KindRange:   "range",
	KindTag:     "tag",
}

func (k Kind) String() string { return kindNames[k] }

// Specifier is a declared, possibly unresolved, dependency requirement.
type Specifier struct {
	Name string
	Spec string
}

func (s Specifier) String() string { return s.Name + "@" + s.Spec }

var tagRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)

// Kind classifies s.Spec.
func (s Specifier) Kind() Kind {
	spec := strings.TrimSpace(s.Spec)
	switch {
	case registry.IsPath(spec):
		return KindPath
	case registry.IsURL(spec):
		return KindURL
	}
	if _, ok := ParseVersion(spec); ok {
		return KindExact
	}
	if _, ok := ParseRange(spec); ok {
		return KindRange
	}
	if tagRe.MatchString(spec) {
		return KindTag
	}
	return KindInvalid
}

// ParseVersion parses an exact version, accepting a leading "=" or "v".
func ParseVersion(s string) (*semver.Version, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "=")
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, false
	}
	return v, true
}

// ParseRange parses a version range. Exact versions parse as ranges that
// only they satisfy; an empty range means any version.
func ParseRange(s string) (*semver.Constraints, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "*"
	}
	c, err := semver.NewConstraint(s)
	if err != nil {
		return nil, false
	}
	return c, true
}

// Satisfies reports whether version is a valid version inside spec's
// range.
func Satisfies(version, spec string) bool {
	v, ok := ParseVersion(version)
	if !ok {
		return false
	}
	c, ok := ParseRange(spec)
	if !ok {
		return false
	}
	return c.Check(v)
}
