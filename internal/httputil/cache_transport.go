package httputil

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2"
)

const (
	defaultLRUMaxEntries = 1000

	// CacheStatusHeader is set on every response the transport serves from memory.
	CacheStatusHeader = "X-Marquee-Cache"
)

// CacheTransport is an http.RoundTripper that keeps successful GET responses in an LRU, keyed by
// URL and Accept header. Response Cache-Control is honored (no-store/no-cache are never stored,
// max-age and s-maxage bound the lifetime); responses without a lifetime live for DefaultTTL, or
// until evicted when DefaultTTL is zero. A request with Cache-Control no-cache or max-age=0
// bypasses the cache but still refreshes it.
type CacheTransport struct {
	Base http.RoundTripper

	// MaxEntries is the LRU size. Zero means defaultLRUMaxEntries (1000).
	MaxEntries int

	// DefaultTTL applies to responses that carry no max-age.
	DefaultTTL time.Duration

	// OnCacheHit, if set, is called for every cacheable request with its key and whether it hit.
	OnCacheHit func(cacheKey string, hit bool)

	// Now is the clock used for expiry; nil means time.Now.
	Now func() time.Time

	initOnce sync.Once
	cache    *lru.Cache[string, *cachedResponse]
	initErr  error
	hits     atomic.Int64
	misses   atomic.Int64
}

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time // zero = until evicted
}

// Stats reports how many cacheable requests were served from memory and how many went upstream.
func (t *CacheTransport) Stats() (hits, misses int64) {
	return t.hits.Load(), t.misses.Load()
}

func (t *CacheTransport) ensureCache() error {
	t.initOnce.Do(func() {
		size := t.MaxEntries
		if size <= 0 {
			size = defaultLRUMaxEntries
		}
		t.cache, t.initErr = lru.New[string, *cachedResponse](size)
	})
	return t.initErr
}

func (t *CacheTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func cacheKey(req *http.Request) string {
	return req.URL.String() + " accept=" + req.Header.Get("Accept")
}

// RoundTrip implements http.RoundTripper.
func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.ensureCache(); err != nil {
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Method != http.MethodGet {
		return base.RoundTrip(req)
	}

	key := cacheKey(req)
	if !requestWantsFresh(req) {
		if entry, ok := t.cache.Get(key); ok {
			if entry.expires.IsZero() || t.now().Before(entry.expires) {
				t.record(key, true)
				return entry.response(req), nil
			}
			t.cache.Remove(key)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.record(key, false)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}
	noStore, maxAge := responseCacheControl(resp.Header)
	if noStore {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	t.cache.Add(key, &cachedResponse{
		status:  resp.StatusCode,
		header:  resp.Header.Clone(),
		body:    body,
		expires: t.expires(maxAge),
	})
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func (t *CacheTransport) record(key string, hit bool) {
	if hit {
		t.hits.Add(1)
	} else {
		t.misses.Add(1)
	}
	slog.Debug("httputil: cache", "key", key, "hit", hit)
	if t.OnCacheHit != nil {
		t.OnCacheHit(key, hit)
	}
}

func (t *CacheTransport) expires(maxAge time.Duration) time.Time {
	ttl := maxAge
	if ttl <= 0 {
		ttl = t.DefaultTTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return t.now().Add(ttl)
}

func (e *cachedResponse) response(req *http.Request) *http.Response {
	header := e.header.Clone()
	header.Set(CacheStatusHeader, "hit")
	return &http.Response{
		Status:        strconv.Itoa(e.status) + " " + http.StatusText(e.status),
		StatusCode:    e.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}
}

// requestWantsFresh reports whether the request's Cache-Control asks to skip stored responses.
func requestWantsFresh(req *http.Request) bool {
	for part := range strings.SplitSeq(req.Header.Get("Cache-Control"), ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "no-cache" {
			return true
		}
		if n, ok := directiveSeconds(part, "max-age="); ok && n <= 0 {
			return true
		}
	}
	return false
}

// responseCacheControl parses every Cache-Control header of a response. maxAge is zero when no
// positive lifetime was given; s-maxage wins over max-age.
func responseCacheControl(header http.Header) (noStore bool, maxAge time.Duration) {
	var age, shared int
	for _, cc := range header.Values("Cache-Control") {
		for part := range strings.SplitSeq(cc, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			switch {
			case part == "no-store" || part == "no-cache" || part == "private":
				noStore = true
			case strings.HasPrefix(part, "s-maxage="):
				if n, ok := directiveSeconds(part, "s-maxage="); ok && n > 0 {
					shared = n
				}
			case strings.HasPrefix(part, "max-age="):
				if n, ok := directiveSeconds(part, "max-age="); ok && n > 0 {
					age = n
				}
			}
		}
	}
	if shared > 0 {
		age = shared
	}
	return noStore, time.Duration(age) * time.Second
}

func directiveSeconds(part, prefix string) (int, bool) {
	val, ok := strings.CutPrefix(part, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(val), `"`))
	if err != nil {
		return 0, false
	}
	return n, true
}
