package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"guidecache/pkg/fetch"
	"guidecache/pkg/store"
)

// originStub is an origin that can be switched offline.
type originStub struct {
	mu      sync.Mutex
	offline bool
	body    map[string]string
	ctype   map[string]string
	calls   map[string]int
}

func newOriginStub() *originStub {
	return &originStub{
		body:  map[string]string{},
		ctype: map[string]string{},
		calls: map[string]int{},
	}
}

func (o *originStub) Fetch(path string) (*fetch.Result, error) {
	return o.FetchTimeout(path, time.Second)
}

func (o *originStub) FetchTimeout(path string, d time.Duration) (*fetch.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[path]++
	if o.offline {
		return nil, errors.New("origin unreachable")
	}
	body, ok := o.body[path]
	if !ok {
		return &fetch.Result{Status: 404, Body: []byte("not found")}, nil
	}
	ct := o.ctype[path]
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &fetch.Result{Status: 200, ContentType: ct, Body: []byte(body)}, nil
}

func (o *originStub) setOffline(v bool) {
	o.mu.Lock()
	o.offline = v
	o.mu.Unlock()
}

func openTest(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func get(t *testing.T, g *Gateway, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	g.ServeHTTP(rr, req)
	return rr
}

func TestClassify(t *testing.T) {
	cases := map[string]Class{
		"/audio/en-GB.room1.mp3": ClassAsset,
		"/images/night.jpg":      ClassAsset,
		"/data/nl-NL_rooms.json": ClassAsset,
		"/static/chunk.js":       ClassStatic,
		"/assets/app.css":        ClassStatic,
		"/fonts/sans.woff2":      ClassStatic,
		"/favicon.ico":           ClassStatic,
		"/":                      ClassPage,
		"/nl-NL":                 ClassPage,
		"/en-GB/room/2":          ClassPage,
		"/api/whatever":          ClassDefault,
		"/xx-XX/room/1":          ClassDefault,
	}
	for path, want := range cases {
		if got := Classify(path); got != want {
			t.Fatalf("Classify(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestAssetCacheFirst(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	g := New(origin, nil, time.Second, 0)
	_ = store.Put(store.Assets, "/audio/en-GB.room1.mp3", store.Entry{
		Status: 200, ContentType: "audio/mpeg", Body: []byte("cached-audio"),
	})

	rr := get(t, g, "/audio/en-GB.room1.mp3")
	if rr.Code != 200 || rr.Body.String() != "cached-audio" {
		t.Fatalf("expected cached body, got %d %q", rr.Code, rr.Body.String())
	}
	if origin.calls["/audio/en-GB.room1.mp3"] != 0 {
		t.Fatalf("cache hit must not reach the origin")
	}
}

func TestAssetNetworkWriteThrough(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.body["/images/night.jpg"] = "jpeg-bytes"
	origin.ctype["/images/night.jpg"] = "image/jpeg"
	g := New(origin, nil, time.Second, 0)

	rr := get(t, g, "/images/night.jpg")
	if rr.Code != 200 || rr.Body.String() != "jpeg-bytes" {
		t.Fatalf("expected origin body, got %d %q", rr.Code, rr.Body.String())
	}
	if !store.Has(store.Assets, "/images/night.jpg") {
		t.Fatalf("origin response must be written through")
	}
}

func TestAssetJSONLandsInDataPartition(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.body["/data/nl-NL_rooms.json"] = "[]"
	origin.ctype["/data/nl-NL_rooms.json"] = "application/json"
	g := New(origin, nil, time.Second, 0)

	get(t, g, "/data/nl-NL_rooms.json")
	if !store.Has(store.Data, "/data/nl-NL_rooms.json") {
		t.Fatalf("JSON must land in the data partition")
	}
	if store.Has(store.Assets, "/data/nl-NL_rooms.json") {
		t.Fatalf("JSON must not land in the asset partition")
	}
}

func TestAssetImageFallback(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.setOffline(true)
	g := New(origin, nil, time.Second, 0)
	_ = store.Put(store.Assets, FallbackImageURL, store.Entry{
		Status: 200, ContentType: "image/png", Body: []byte("placeholder"),
	})

	rr := get(t, g, "/images/missing.jpg")
	if rr.Code != 200 || rr.Body.String() != "placeholder" {
		t.Fatalf("expected image fallback, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestAssetAudioHardFailure(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.setOffline(true)
	g := New(origin, nil, time.Second, 0)

	rr := get(t, g, "/audio/en-GB.room9.mp3")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with no fallback cached, got %d", rr.Code)
	}

	// with the silence track cached, the same request degrades gracefully
	_ = store.Put(store.Assets, FallbackAudioURL, store.Entry{
		Status: 200, ContentType: "audio/mpeg", Body: []byte("silence"),
	})
	rr = get(t, g, "/audio/en-GB.room9.mp3")
	if rr.Code != 200 || rr.Body.String() != "silence" {
		t.Fatalf("expected silence fallback, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestStaticOfflineFallbacks(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.setOffline(true)
	g := New(origin, nil, time.Second, 0)

	rr := get(t, g, "/static/chunk.js")
	if rr.Code != 200 || rr.Header().Get("Content-Type") != "application/javascript" {
		t.Fatalf("offline script must be empty 200 js, got %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("offline script body must be empty")
	}

	rr = get(t, g, "/static/app.css")
	if rr.Code != 200 || rr.Header().Get("Content-Type") != "text/css" {
		t.Fatalf("offline style must be empty 200 css, got %d", rr.Code)
	}

	rr = get(t, g, "/static/logo.svg")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("other offline static must 404, got %d", rr.Code)
	}
}

func TestPageExactCacheWinsEvenOnline(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.body["/nl-NL/room/2"] = "fresh from origin"
	g := New(origin, nil, time.Second, 0)
	_ = store.Put(store.Pages, "/nl-NL/room/2", store.Entry{
		Status: 200, ContentType: "text/html", Body: []byte("cached page"),
	})

	rr := get(t, g, "/nl-NL/room/2")
	if rr.Body.String() != "cached page" {
		t.Fatalf("exact page cache must win: %q", rr.Body.String())
	}
	if origin.calls["/nl-NL/room/2"] != 0 {
		t.Fatalf("page cache hit must not reach the origin")
	}
}

func TestPageFallbackChain(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.setOffline(true)
	g := New(origin, nil, time.Second, 0)

	put := func(url, body string) {
		_ = store.Put(store.Pages, url, store.Entry{Status: 200, ContentType: "text/html", Body: []byte(body)})
	}

	// 1. same-locale first-room page
	put(FirstRoomPage("nl-NL"), "nl room one")
	put(RootPage("nl-NL"), "nl root")
	put(RootPage("en-GB"), "default root")
	rr := get(t, g, "/nl-NL/room/7")
	if rr.Body.String() != "nl room one" {
		t.Fatalf("chain step 1 failed: %q", rr.Body.String())
	}

	// 2. same-locale root
	_ = store.Delete(store.Pages, FirstRoomPage("nl-NL"))
	rr = get(t, g, "/nl-NL/room/7")
	if rr.Body.String() != "nl root" {
		t.Fatalf("chain step 2 failed: %q", rr.Body.String())
	}

	// 3. default-locale root
	_ = store.Delete(store.Pages, RootPage("nl-NL"))
	rr = get(t, g, "/nl-NL/room/7")
	if rr.Body.String() != "default root" {
		t.Fatalf("chain step 3 failed: %q", rr.Body.String())
	}

	// 4. generated offline page, always 200 html
	_ = store.Delete(store.Pages, RootPage("en-GB"))
	rr = get(t, g, "/nl-NL/room/7")
	if rr.Code != 200 {
		t.Fatalf("offline page must be 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("offline page must be html, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "/nl-NL/room/7") {
		t.Fatalf("offline page should name the requested path")
	}
}

func TestPageFallbackSkipsRequestedURL(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.setOffline(true)
	g := New(origin, nil, time.Second, 0)
	_ = store.Put(store.Pages, RootPage("fr-FR"), store.Entry{
		Status: 200, ContentType: "text/html", Body: []byte("fr root"),
	})

	// requesting the first-room page itself must not loop onto itself
	rr := get(t, g, FirstRoomPage("fr-FR"))
	if rr.Body.String() != "fr root" {
		t.Fatalf("expected root fallback, got %q", rr.Body.String())
	}
}

func TestDefaultClassNetworkFirst(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.body["/api/config"] = "{}"
	g := New(origin, nil, time.Second, 0)

	rr := get(t, g, "/api/config")
	if rr.Code != 200 || rr.Body.String() != "{}" {
		t.Fatalf("default class should pass through, got %d %q", rr.Code, rr.Body.String())
	}

	origin.setOffline(true)
	rr = get(t, g, "/api/unknown")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("offline default class with no match must 502, got %d", rr.Code)
	}
}

func TestDefaultClassBadStatusFallsBackToCache(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	g := New(origin, nil, time.Second, 0)
	_ = store.Put(store.Data, "/api/config", store.Entry{
		Status: 200, ContentType: "application/json", Body: []byte(`{"cached":true}`),
	})

	// the stub answers 404 for paths it has no body for
	rr := get(t, g, "/api/config")
	if rr.Code != 200 || rr.Body.String() != `{"cached":true}` {
		t.Fatalf("origin error status must yield the cached copy, got %d %q", rr.Code, rr.Body.String())
	}
	if origin.calls["/api/config"] != 1 {
		t.Fatalf("network must still be tried first, calls=%d", origin.calls["/api/config"])
	}

	// with nothing cached, the origin's own failure is relayed
	rr = get(t, g, "/api/missing")
	if rr.Code != http.StatusNotFound || rr.Body.String() != "not found" {
		t.Fatalf("uncached error status must be relayed, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestOversizeBodyServedNotCached(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.body["/images/huge.jpg"] = strings.Repeat("x", 100)
	origin.ctype["/images/huge.jpg"] = "image/jpeg"
	g := New(origin, nil, time.Second, 10)

	rr := get(t, g, "/images/huge.jpg")
	if rr.Code != 200 || rr.Body.Len() != 100 {
		t.Fatalf("oversize body must still be served, got %d len=%d", rr.Code, rr.Body.Len())
	}
	if store.Has(store.Assets, "/images/huge.jpg") {
		t.Fatalf("oversize body must not be cached")
	}
}
