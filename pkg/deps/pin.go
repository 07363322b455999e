package deps

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/palace/pkg/errors"
)

// Pin resolves s to an exact version or location. Exact versions, paths and
// URLs are pinned without contacting the registry; ranges and tags consult
// the package's version list.
func (r *Resolver) Pin(ctx context.Context, s Specifier) (Pinned, error) {
	switch s.Kind() {
	case KindPath, KindURL:
		return Pinned{Name: s.Name, Version: s.Spec}, nil

	case KindExact:
		v, _ := ParseVersion(s.Spec)
		return Pinned{Name: s.Name, Version: v.String()}, nil

	case KindRange:
		vl, err := r.fetcher.FetchVersions(ctx, s.Name)
		if err != nil {
			return Pinned{}, fmt.Errorf("pin %s: %w", s, err)
		}
		c, _ := ParseRange(s.Spec)
		best, ok := MaxSatisfying(vl.Versions, c)
		if !ok {
			return Pinned{}, errors.New(errors.ErrCodeNoMatchingVersion,
				"couldn't find a version matching %q for package %q", s.Spec, s.Name)
		}
		return Pinned{Name: s.Name, Version: best}, nil

	case KindTag:
		vl, err := r.fetcher.FetchVersions(ctx, s.Name)
		if err != nil {
			return Pinned{}, fmt.Errorf("pin %s: %w", s, err)
		}
		tagged, ok := vl.DistTags[s.Spec]
		if _, valid := ParseVersion(tagged); !ok || !valid {
			return Pinned{}, errors.New(errors.ErrCodeNoMatchingVersion,
				"package %q has no dist-tag %q", s.Name, s.Spec)
		}
		v, _ := ParseVersion(tagged)
		return Pinned{Name: s.Name, Version: v.String()}, nil

	default:
		return Pinned{}, errors.New(errors.ErrCodeInvalidSpecifier,
			"invalid specifier %q for package %q", s.Spec, s.Name)
	}
}

// MaxSatisfying returns the highest of versions inside c. Entries that are
// not valid versions are ignored.
func MaxSatisfying(versions []string, c *semver.Constraints) (string, bool) {
	var best *semver.Version
	for _, raw := range versions {
		v, ok := ParseVersion(raw)
		if !ok || !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return "", false
	}
	return best.String(), true
}
