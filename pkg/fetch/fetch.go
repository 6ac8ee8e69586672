// Package fetch is the origin-side HTTP client used by the scheduler and
// the gateway. Responses are copied into pooled buffers; callers must call
// Result.Release exactly once when finished.
package fetch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"guidecache/pkg/logger"
)

// maxPooledBuffer controls the largest buffer returned to the pool. Larger
// bodies are dropped so resident memory stays bounded.
const maxPooledBuffer = 1 << 20 // 1 MiB

// Result holds one origin response. Body is backed by a pooled buffer
// until Release is called.
type Result struct {
	Status      int
	ContentType string
	Body        []byte

	buf  *bytebufferpool.ByteBuffer
	once sync.Once
}

// OK reports whether the response carried a success status.
func (r *Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Release returns the pooled body buffer. Body must not be used afterwards.
func (r *Result) Release() {
	r.once.Do(func() {
		if r.buf != nil {
			if cap(r.buf.B) <= maxPooledBuffer {
				bytebufferpool.Put(r.buf)
			}
			r.buf = nil
		}
		r.Body = nil
	})
}

// Client fetches content from the configured origin.
type Client struct {
	base    string
	timeout time.Duration
	hc      *fasthttp.Client
}

// New returns a client rooted at baseURL with the given default timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		hc:      &fasthttp.Client{MaxResponseBodySize: 128 << 20},
	}
}

// Base returns the configured origin base URL.
func (c *Client) Base() string { return c.base }

// Fetch requests path from the origin using the default timeout.
func (c *Client) Fetch(path string) (*Result, error) {
	return c.FetchTimeout(path, c.timeout)
}

// FetchTimeout requests path from the origin, bounded by d. A transport
// error or timeout is the caller's signal that the origin is unreachable.
func (c *Client) FetchTimeout(path string, d time.Duration) (*Result, error) {
	if c.base == "" {
		return nil, fmt.Errorf("no origin configured")
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.hc.DoTimeout(req, resp, d); err != nil {
		logger.Debug("origin_fetch_failed", "path", path, "error", err)
		return nil, fmt.Errorf("origin fetch %s: %w", path, err)
	}

	body := resp.Body()
	bb := bytebufferpool.Get()
	bb.B = append(bb.B[:0], body...)
	r := &Result{
		Status:      resp.StatusCode(),
		ContentType: string(resp.Header.ContentType()),
		Body:        bb.B,
		buf:         bb,
	}
	logger.Debug("origin_fetch", "path", path, "status", r.Status, "len", len(r.Body))
	return r, nil
}
