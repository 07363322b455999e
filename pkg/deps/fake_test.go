package deps

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/palace/pkg/archive/archivetest"
	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/registry"
)

// fakeRegistry serves in-memory archives and version lists and records
// every call.
type fakeRegistry struct {
	mu       sync.Mutex
	versions map[string]*registry.VersionList
	archives map[string][]byte
	fetched  []string
	queried  []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		versions: make(map[string]*registry.VersionList),
		archives: make(map[string][]byte),
	}
}

// publish adds name@version with the given dependencies and lists the
// version in the registry document.
func (f *fakeRegistry) publish(name, version string, deps map[string]string) {
	f.archives[f.Location(name, version)] = archivetest.Package(archivetest.Manifest{
		Name:         name,
		Version:      version,
		Dependencies: deps,
	}, nil)
	vl, ok := f.versions[name]
	if !ok {
		vl = &registry.VersionList{Name: name, DistTags: map[string]string{}}
		f.versions[name] = vl
	}
	vl.Versions = append(vl.Versions, version)
}

func (f *fakeRegistry) Location(name, version string) string {
	if registry.IsLocation(version) {
		return version
	}
	return "registry:" + name + "@" + version
}

func (f *fakeRegistry) FetchBytes(_ context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, location)
	data, ok := f.archives[location]
	if !ok {
		return nil, errors.New(errors.ErrCodeFetch, "no archive at %s", location)
	}
	return data, nil
}

func (f *fakeRegistry) FetchVersions(_ context.Context, name string) (*registry.VersionList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, name)
	vl, ok := f.versions[name]
	if !ok {
		return nil, errors.Wrap(errors.ErrCodeFetch,
			errors.New(errors.ErrCodePackageNotFound, "no package %s", name), "fetch versions of %s", name)
	}
	return vl, nil
}

func (f *fakeRegistry) fetchCount(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.fetched {
		if l == location {
			n++
		}
	}
	return n
}

func (f *fakeRegistry) queriedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queried)
}
