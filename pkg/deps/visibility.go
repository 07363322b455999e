package deps

import "maps"

// Visibility maps package names to the versions pinned by ancestors of a
// resolution point. It is immutable: [Visibility.With] returns an extended
// copy, so sibling branches never see each other's pins.
type Visibility struct {
	m map[string]string
}

// With returns a new Visibility with name bound to version.
func (v Visibility) With(name, version string) Visibility {
	m := make(map[string]string, len(v.m)+1)
	maps.Copy(m, v.m)
	m[name] = version
	return Visibility{m: m}
}

// Lookup returns the version visible for name.
func (v Visibility) Lookup(name string) (string, bool) {
	version, ok := v.m[name]
	return version, ok
}

// Len returns the number of visible packages.
func (v Visibility) Len() int { return len(v.m) }

// Satisfied reports whether s is already provided by an ancestor: the
// visible version is byte-identical to the declared string, or is a
// version inside its range.
func (v Visibility) Satisfied(s Specifier) bool {
	visible, ok := v.Lookup(s.Name)
	if !ok {
		return false
	}
	return s.Spec == visible || Satisfies(visible, s.Spec)
}

// Partition splits specs into those still needing resolution and those
// pruned because an ancestor satisfies them.
func (v Visibility) Partition(specs []Specifier) (pending, pruned []Specifier) {
	for _, s := range specs {
		if v.Satisfied(s) {
			pruned = append(pruned, s)
		} else {
			pending = append(pending, s)
		}
	}
	return pending, pruned
}
