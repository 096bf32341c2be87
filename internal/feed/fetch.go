package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "kidplan/internal/log"
)

// Source is one external ICS subscription.
type Source struct {
	ID  string
	URL string
}

// Result is the body obtained for a Source, fresh or from disk cache.
type Result struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// cacheMeta holds the validators of the last successful download.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads ICS feeds with conditional requests and falls back to
// the last cached body when the network or the origin fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join("data", "ics-cache")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// FetchAll fetches every source. Failed sources are logged and reported in
// the error slice; results only hold sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]Result, []error) {
	results := make([]Result, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.Fetch(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", src.ID, err))
			appLog.Error("feed fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// Fetch downloads a single source honoring ETag / Last-Modified.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Result, error) {
	if src.URL == "" {
		return Result{}, errors.New("source URL is empty")
	}

	dir := f.cachePath(src.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Result{}, err
	}
	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	stale := func(reason error) (Result, error) {
		if len(cached) == 0 {
			return Result{}, reason
		}
		appLog.Warn("feed fetch failed; serving cached body", "id", src.ID, "reason", reason)
		return Result{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return Result{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return stale(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return stale(err)
		}
		next := cacheMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, next, body); err != nil {
			appLog.Error("feed cache save failed", err, "id", src.ID)
		}
		appLog.Debug("feed fetched", "id", src.ID, "bytes", len(body))
		return Result{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return Result{}, errors.New("304 Not Modified without a cached body")
		}
		return Result{Source: src, Body: cached, FromCache: true}, nil

	default:
		return stale(errors.New(resp.Status))
	}
}

func (f *Fetcher) cachePath(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host; private feed URLs embed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
