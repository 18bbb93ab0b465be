package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/conorfennell/idiomas/internal/metrics"
)

// ErrNotCached is returned by Match when no generation holds the request.
var ErrNotCached = errors.New("request not cached")

// DefaultManifest lists the app shell assets needed offline.
var DefaultManifest = []string{"/", "/index.html", "/base_words.json"}

// Options configures a Worker.
type Options struct {
	Version   string
	Manifest  []string
	Origin    string
	Transport http.RoundTripper
	Store     Store
	Logger    *slog.Logger
}

// Worker is a cache-first http.RoundTripper over versioned cache generations.
// Exactly one generation, Version, is live; Activate removes the others.
type Worker struct {
	version  string
	manifest []string
	origin   *url.URL
	next     http.RoundTripper
	store    Store
	logger   *slog.Logger
}

// New creates a Worker. Manifest paths are resolved against Origin.
func New(opts Options) (*Worker, error) {
	if opts.Version == "" {
		return nil, errors.New("cache version is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	origin, err := url.Parse(opts.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid origin %q", opts.Origin)
	}
	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	manifest := opts.Manifest
	if manifest == nil {
		manifest = DefaultManifest
	}
	return &Worker{
		version:  opts.Version,
		manifest: manifest,
		origin:   origin,
		next:     next,
		store:    opts.Store,
		logger:   logger,
	}, nil
}

// Client returns an http.Client whose requests go through the worker.
func (w *Worker) Client() *http.Client {
	return &http.Client{Transport: w}
}

// Install fetches every manifest asset from the network and stores them as
// the worker's generation in one write. A failed fetch stores nothing.
func (w *Worker) Install(ctx context.Context) error {
	entries := make([]Entry, 0, len(w.manifest))
	for _, p := range w.manifest {
		ref, err := url.Parse(p)
		if err != nil {
			return fmt.Errorf("invalid manifest path %q: %w", p, err)
		}
		target := w.origin.ResolveReference(ref)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to build request for %s: %w", target, err)
		}
		resp, err := w.next.RoundTrip(req)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", target, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", target, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("failed to fetch %s: status %d", target, resp.StatusCode)
		}
		entries = append(entries, newEntry(req, resp, body))
	}

	if err := w.store.PutAll(ctx, w.version, entries); err != nil {
		return fmt.Errorf("failed to store generation %s: %w", w.version, err)
	}
	w.logger.Info("Asset cache installed", "version", w.version, "assets", len(entries))
	return nil
}

// Activate deletes every stored generation other than the worker's own and
// returns once they are gone.
func (w *Worker) Activate(ctx context.Context) error {
	gens, err := w.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache generations: %w", err)
	}
	for _, g := range gens {
		if g == w.version {
			continue
		}
		if err := w.store.DeleteGeneration(ctx, g); err != nil {
			return fmt.Errorf("failed to delete cache generation %s: %w", g, err)
		}
		w.logger.Info("Asset cache generation deleted", "version", g)
	}
	return nil
}

// Ensure installs the generation when it is missing and then activates it.
// When the install fails the previous generations are kept so they can still
// answer requests.
func (w *Worker) Ensure(ctx context.Context) error {
	gens, err := w.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache generations: %w", err)
	}
	if !slices.Contains(gens, w.version) {
		if err := w.Install(ctx); err != nil {
			w.logger.Warn("Asset cache install failed, keeping previous generations", "version", w.version, "error", err)
			return nil
		}
	}
	return w.Activate(ctx)
}

// Match looks a request up in the live generation first and then in any
// generation that has not been removed by Activate yet.
func (w *Worker) Match(ctx context.Context, req *http.Request) (*Entry, error) {
	key := RequestKey(req.Method, req.URL)
	e, err := w.store.Get(ctx, w.version, key)
	if err != nil {
		return nil, err
	}
	if e != nil {
		return e, nil
	}
	gens, err := w.store.Generations(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range gens {
		if g == w.version {
			continue
		}
		e, err := w.store.Get(ctx, g, key)
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, ErrNotCached
}

// RoundTrip serves GET requests from the cache, falling back to the network
// and storing successful network responses. Cache write failures are logged
// and never fail the request.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		metrics.RecordAssetCache("bypass")
		return w.next.RoundTrip(req)
	}
	ctx := req.Context()

	e, err := w.Match(ctx, req)
	switch {
	case err == nil:
		metrics.RecordAssetCache("hit")
		return e.Response(req), nil
	case !errors.Is(err, ErrNotCached):
		w.logger.Debug("Asset cache lookup failed", "url", req.URL.String(), "error", err)
	}

	resp, err := w.next.RoundTrip(req)
	if err != nil {
		metrics.RecordAssetCache("offline")
		return nil, err
	}
	metrics.RecordAssetCache("miss")
	if !cacheable(resp) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if err := w.store.Put(ctx, w.version, newEntry(req, resp, body)); err != nil {
		w.logger.Warn("Asset cache write failed", "url", req.URL.String(), "error", err)
	}
	return resp, nil
}

func cacheable(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299 && resp.StatusCode != http.StatusPartialContent
}

func newEntry(req *http.Request, resp *http.Response, body []byte) Entry {
	return Entry{
		Key:      RequestKey(req.Method, req.URL),
		Method:   req.Method,
		URL:      req.URL.String(),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now(),
	}
}
