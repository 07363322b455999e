package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/palace/pkg/errors"
)

type fakeRegistry struct {
	docs     map[string]map[string]any
	tarballs map[string][]byte

	metadataHits atomic.Int32
	sessions     sync.Map
	flaky        atomic.Int32
}

func (f *fakeRegistry) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s := r.Header.Get("npm-session"); s != "" {
				f.sessions.Store(s, true)
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if f.flaky.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Get("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	r.Get("/{name}/-/{file}", func(w http.ResponseWriter, r *http.Request) {
		f.serveTarball(w, chi.URLParam(r, "name"), chi.URLParam(r, "file"))
	})
	r.Get("/{scope}/{name}/-/{file}", func(w http.ResponseWriter, r *http.Request) {
		f.serveTarball(w, chi.URLParam(r, "scope")+"/"+chi.URLParam(r, "name"), chi.URLParam(r, "file"))
	})
	r.Get("/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.metadataHits.Add(1)
		doc, ok := f.docs[chi.URLParam(r, "name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(doc)
	})
	return r
}

func (f *fakeRegistry) serveTarball(w http.ResponseWriter, name, file string) {
	data, ok := f.tarballs[name+"/"+file]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write(data)
}

func newFake(t *testing.T) (*fakeRegistry, *httptest.Server) {
	t.Helper()
	f := &fakeRegistry{
		docs: map[string]map[string]any{
			"left-pad": {
				"name":      "left-pad",
				"dist-tags": map[string]string{"latest": "1.3.0"},
				"versions": map[string]any{
					"1.0.0": map[string]any{},
					"1.1.0": map[string]any{},
					"1.3.0": map[string]any{},
				},
			},
			"@types%2fnode": {
				"name":      "@types/node",
				"dist-tags": map[string]string{"latest": "20.1.0"},
				"versions":  map[string]any{"20.1.0": map[string]any{}},
			},
		},
		tarballs: map[string][]byte{
			"left-pad/left-pad-1.3.0.tgz": []byte("left-pad tarball"),
			"@types/node/node-20.1.0.tgz": []byte("types tarball"),
		},
	}
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return f, srv
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()
	if opts.URL != DefaultURL {
		t.Errorf("URL = %q, want %q", opts.URL, DefaultURL)
	}
	if opts.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", opts.Concurrency, DefaultConcurrency)
	}
	if opts.Retries != 0 {
		t.Errorf("Retries = %d, want 0", opts.Retries)
	}

	opts = Options{URL: "http://localhost:4873/", Retries: -2}.WithDefaults()
	if opts.URL != "http://localhost:4873" {
		t.Errorf("URL = %q, want trailing slash trimmed", opts.URL)
	}
	if opts.Retries != 0 {
		t.Errorf("Retries = %d, want 0", opts.Retries)
	}
}

func TestLocation(t *testing.T) {
	c := NewClient(Options{URL: "https://registry.example.com"})

	tests := []struct {
		name, version, want string
	}{
		{"left-pad", "1.3.0", "https://registry.example.com/left-pad/-/left-pad-1.3.0.tgz"},
		{"@types/node", "20.1.0", "https://registry.example.com/@types/node/-/node-20.1.0.tgz"},
		{"local", "./vendor/local.tgz", "./vendor/local.tgz"},
		{"abs", "/tmp/abs.tgz", "/tmp/abs.tgz"},
		{"remote", "https://cdn.example.com/r.tgz", "https://cdn.example.com/r.tgz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Location(tt.name, tt.version); got != tt.want {
				t.Errorf("Location(%q, %q) = %q, want %q", tt.name, tt.version, got, tt.want)
			}
		})
	}
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		in        string
		path, url bool
	}{
		{"/abs/pkg.tgz", true, false},
		{"./pkg.tgz", true, false},
		{"../pkg.tgz", true, false},
		{"https://example.com/pkg.tgz", false, true},
		{"http://example.com/pkg.tgz", false, true},
		{"file:///tmp/pkg.tgz", false, true},
		{"ftp://example.com/pkg.tgz", false, false},
		{"^1.2.3", false, false},
		{"1.2.3", false, false},
		{"latest", false, false},
		{"pkg.tgz", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsPath(tt.in); got != tt.path {
				t.Errorf("IsPath(%q) = %v, want %v", tt.in, got, tt.path)
			}
			if got := IsURL(tt.in); got != tt.url {
				t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.url)
			}
		})
	}
}

func TestMetadataURL(t *testing.T) {
	if got := MetadataURL("https://r.example/", "@scope/pkg"); got != "https://r.example/@scope%2fpkg" {
		t.Errorf("MetadataURL(scoped) = %q", got)
	}
	if got := MetadataURL("https://r.example", "pkg"); got != "https://r.example/pkg" {
		t.Errorf("MetadataURL() = %q", got)
	}
}

func TestFetchBytesRegistry(t *testing.T) {
	_, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL})
	ctx := context.Background()

	data, err := c.FetchBytes(ctx, c.Location("left-pad", "1.3.0"))
	if err != nil {
		t.Fatalf("FetchBytes() error: %v", err)
	}
	if string(data) != "left-pad tarball" {
		t.Errorf("FetchBytes() = %q", data)
	}

	data, err = c.FetchBytes(ctx, c.Location("@types/node", "20.1.0"))
	if err != nil {
		t.Fatalf("FetchBytes(scoped) error: %v", err)
	}
	if string(data) != "types tarball" {
		t.Errorf("FetchBytes(scoped) = %q", data)
	}
}

func TestFetchBytesNotFound(t *testing.T) {
	_, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL})

	_, err := c.FetchBytes(context.Background(), c.Location("left-pad", "9.9.9"))
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("error = %v, want FETCH_ERROR", err)
	}
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("error = %v, want PACKAGE_NOT_FOUND", err)
	}
}

func TestFetchBytesStatus(t *testing.T) {
	_, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL})

	_, err := c.FetchBytes(context.Background(), srv.URL+"/forbidden")
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("error = %v, want FETCH_ERROR", err)
	}
	if errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("403 should not be reported as PACKAGE_NOT_FOUND")
	}
}

func TestFetchBytesNoRetryByDefault(t *testing.T) {
	f, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL})

	if _, err := c.FetchBytes(context.Background(), srv.URL+"/flaky"); err == nil {
		t.Fatal("FetchBytes() succeeded, want error without retries")
	}
	if got := f.flaky.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchBytesRetries(t *testing.T) {
	f, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL, Retries: 2, RetryDelay: 1})

	data, err := c.FetchBytes(context.Background(), srv.URL+"/flaky")
	if err != nil {
		t.Fatalf("FetchBytes() error: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("FetchBytes() = %q, want %q", data, "ok")
	}
	if got := f.flaky.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestFetchBytesPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "local.tgz"), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewClient(Options{Dir: dir})
	ctx := context.Background()

	for _, loc := range []string{"./local.tgz", filepath.Join(dir, "local.tgz"), "file://" + filepath.Join(dir, "local.tgz")} {
		data, err := c.FetchBytes(ctx, loc)
		if err != nil {
			t.Fatalf("FetchBytes(%q) error: %v", loc, err)
		}
		if string(data) != "local" {
			t.Errorf("FetchBytes(%q) = %q", loc, data)
		}
	}

	_, err := c.FetchBytes(ctx, "./missing.tgz")
	if !errors.Is(err, errors.ErrCodeFetch) || !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("FetchBytes(missing) error = %v, want FETCH_ERROR and PACKAGE_NOT_FOUND", err)
	}
}

func TestFetchVersions(t *testing.T) {
	f, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL, RunID: "run-1"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.FetchVersions(ctx, "left-pad"); err != nil {
				t.Errorf("FetchVersions() error: %v", err)
			}
		}()
	}
	wg.Wait()

	vl, err := c.FetchVersions(ctx, "left-pad")
	if err != nil {
		t.Fatalf("FetchVersions() error: %v", err)
	}
	slices.Sort(vl.Versions)
	if want := []string{"1.0.0", "1.1.0", "1.3.0"}; !slices.Equal(vl.Versions, want) {
		t.Errorf("Versions = %v, want %v", vl.Versions, want)
	}
	if vl.DistTags["latest"] != "1.3.0" {
		t.Errorf("DistTags[latest] = %q, want %q", vl.DistTags["latest"], "1.3.0")
	}
	if got := f.metadataHits.Load(); got != 1 {
		t.Errorf("metadata requests = %d, want 1", got)
	}
	if _, ok := f.sessions.Load("run-1"); !ok {
		t.Error("npm-session header not sent")
	}
}

func TestFetchVersionsScoped(t *testing.T) {
	_, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL})

	vl, err := c.FetchVersions(context.Background(), "@types/node")
	if err != nil {
		t.Fatalf("FetchVersions() error: %v", err)
	}
	if len(vl.Versions) != 1 || vl.Versions[0] != "20.1.0" {
		t.Errorf("Versions = %v", vl.Versions)
	}
}

func TestFetchVersionsNotFound(t *testing.T) {
	_, srv := newFake(t)
	c := NewClient(Options{URL: srv.URL})

	_, err := c.FetchVersions(context.Background(), "does-not-exist")
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("error = %v, want PACKAGE_NOT_FOUND", err)
	}
}
