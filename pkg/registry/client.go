package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/palace/pkg/buildinfo"
	"github.com/matzehuels/palace/pkg/errors"
	"github.com/matzehuels/palace/pkg/httputil"
	"github.com/matzehuels/palace/pkg/observability"
)

const (
	DefaultURL         = "https://registry.npmjs.org" // Public registry
	DefaultConcurrency = 16                           // Default in-flight fetches
	DefaultTimeout     = 30 * time.Second             // Default per-request timeout
	DefaultRetryDelay  = 500 * time.Millisecond       // Default initial backoff

	maxRetryDelay = 10 * time.Second
)

// Options configures a Client.
type Options struct {
	URL         string        // Registry base URL (default: public registry)
	Dir         string        // Base directory for relative path specifiers (default: cwd)
	Concurrency int           // Maximum concurrent fetches (default: 16)
	Timeout     time.Duration // HTTP request timeout (default: 30s)
	Retries     int           // Extra attempts for network failures and 5xx (default: 0)
	RetryDelay  time.Duration // Initial retry backoff (default: 500ms)
	RunID       string        // Sent as the npm-session header when set
	HTTPClient  *http.Client  // Overrides the default HTTP client
	Logger      *log.Logger   // Receives retry notices (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	opts.URL = strings.TrimRight(opts.URL, "/")
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// VersionList is the subset of a registry package document the resolver
// needs.
type VersionList struct {
	Name     string            `json:"name"`
	Versions []string          `json:"versions"`
	DistTags map[string]string `json:"dist-tags"`
}

// Client fetches archives and version lists. It is safe for concurrent use.
type Client struct {
	opts    Options
	http    *http.Client
	headers map[string]string
	sem     *semaphore.Weighted

	group    singleflight.Group
	mu       sync.Mutex
	versions map[string]*VersionList
}

// NewClient creates a Client with opts applied over the defaults.
func NewClient(opts Options) *Client {
	opts = opts.WithDefaults()
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	headers := map[string]string{"User-Agent": buildinfo.UserAgent()}
	if opts.RunID != "" {
		headers["npm-session"] = opts.RunID
	}
	return &Client{
		opts:     opts,
		http:     hc,
		headers:  headers,
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		versions: make(map[string]*VersionList),
	}
}

// URL returns the registry base URL.
func (c *Client) URL() string { return c.opts.URL }

// Location translates a pinned version into the place its archive lives.
// Paths and URLs are returned unchanged; anything else is treated as an
// exact registry version.
func (c *Client) Location(name, version string) string {
	if IsLocation(version) {
		return version
	}
	return TarballURL(c.opts.URL, name, version)
}

// FetchBytes returns the raw bytes stored at location.
func (c *Client) FetchBytes(ctx context.Context, location string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "fetch %s", location)
	}
	defer c.sem.Release(1)

	if IsPath(location) {
		return c.readFile(c.resolvePath(location))
	}
	if u, err := url.Parse(location); err == nil && u.Scheme == "file" {
		return c.readFile(u.Path)
	}

	var data []byte
	err := c.get(ctx, location, func(body io.Reader) error {
		var err error
		if data, err = io.ReadAll(body); err != nil {
			return httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
		}
		return nil
	})
	if err != nil {
		return nil, fetchError(err, "fetch %s", location)
	}
	return data, nil
}

// FetchVersions returns every published version of name along with its
// dist-tags. Results are memoized for the lifetime of the Client.
func (c *Client) FetchVersions(ctx context.Context, name string) (*VersionList, error) {
	c.mu.Lock()
	if vl, ok := c.versions[name]; ok {
		c.mu.Unlock()
		return vl, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(name, func() (any, error) {
		vl, err := c.fetchVersions(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.versions[name] = vl
		c.mu.Unlock()
		return vl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*VersionList), nil
}

func (c *Client) fetchVersions(ctx context.Context, name string) (*VersionList, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "fetch versions of %s", name)
	}
	defer c.sem.Release(1)

	var doc packageDocument
	err := c.get(ctx, MetadataURL(c.opts.URL, name), func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(&doc); err != nil {
			return errors.Wrap(errors.ErrCodeDecode, err, "decode package document")
		}
		return nil
	})
	if err != nil {
		return nil, fetchError(err, "fetch versions of %s", name)
	}

	vl := &VersionList{Name: name, DistTags: doc.DistTags}
	for v := range doc.Versions {
		vl.Versions = append(vl.Versions, v)
	}
	return vl, nil
}

type packageDocument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

func (c *Client) resolvePath(p string) string {
	if filepath.IsAbs(p) || c.opts.Dir == "" {
		return p
	}
	return filepath.Join(c.opts.Dir, p)
}

func (c *Client) readFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFetch,
				errors.Wrap(errors.ErrCodePackageNotFound, err, "no archive at %s", p), "read %s", p)
		}
		return nil, errors.Wrap(errors.ErrCodeFetch, err, "read %s", p)
	}
	return data, nil
}

// get performs a GET against rawURL and hands the body to read. Retries
// happen only when configured, and only for retryable failures.
func (c *Client) get(ctx context.Context, rawURL string, read func(io.Reader) error) error {
	policy := httputil.Policy{
		Retries:  c.opts.Retries,
		Delay:    c.opts.RetryDelay,
		MaxDelay: maxRetryDelay,
		OnRetry: func(attempt int, err error) {
			c.opts.Logger.Debug("retrying request", "url", rawURL, "attempt", attempt, "err", err)
		},
	}
	return policy.Do(ctx, func() error {
		body, err := c.doRequest(ctx, rawURL)
		if err != nil {
			return err
		}
		defer body.Close()
		return read(body)
	})
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}
