package proxy

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

/*
Pool hands out one reusable HTTP client per target class. Each client's
transport paces requests with a token bucket and retries a 5xx response
once at the transport layer, independent of the engine's own retry
logic, which handles classified failures above it.
*/
type Pool struct {
	mu      sync.Mutex
	clients map[string]*http.Client

	manager      *Manager
	timeout      time.Duration
	maxIdleConns int
	pace         rate.Limit
	burst        int
}

// PoolOptions configures per-class clients.
type PoolOptions struct {
	// Manager supplies egress proxies; nil means direct connections.
	Manager *Manager
	// Timeout bounds one request end to end.
	Timeout time.Duration
	// MaxIdlePerClass bounds the pooled connections per target class.
	MaxIdlePerClass int
	// Pace is the transport-level request rate per class; zero disables.
	Pace rate.Limit
	// Burst for the pacing bucket; floors at 1 when pacing is enabled.
	Burst int
}

func NewPool(opts PoolOptions) *Pool {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxIdlePerClass <= 0 {
		opts.MaxIdlePerClass = 4
	}
	if opts.Pace > 0 && opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Pool{
		clients:      make(map[string]*http.Client),
		manager:      opts.Manager,
		timeout:      opts.Timeout,
		maxIdleConns: opts.MaxIdlePerClass,
		pace:         opts.Pace,
		burst:        opts.Burst,
	}
}

// Session returns the pooled client for a target class, creating it on
// first use. All adapters for one class share one connection pool.
func (p *Pool) Session(class string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[class]; ok {
		return client
	}

	transport := &http.Transport{
		MaxIdleConns:        p.maxIdleConns,
		MaxIdleConnsPerHost: p.maxIdleConns,
		IdleConnTimeout:     90 * time.Second,
	}
	if p.manager != nil {
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			if endpoint, ok := p.manager.Acquire(); ok {
				return endpoint, nil
			}
			return nil, nil
		}
	}

	var rt http.RoundTripper = transport
	if p.pace > 0 {
		rt = &pacedTransport{
			base:    rt,
			limiter: rate.NewLimiter(p.pace, p.burst),
		}
	}
	rt = &serverRetryTransport{base: rt}

	client := &http.Client{
		Timeout:   p.timeout,
		Transport: rt,
	}
	p.clients[class] = client
	return client
}

// pacedTransport waits for a token before every request.
type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// serverRetryTransport retries one 5xx response after a short pause.
// Only requests without a body are retried; a consumed body cannot be
// replayed safely.
type serverRetryTransport struct {
	base http.RoundTripper
}

func (t *serverRetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 500 || req.Body != nil {
		return resp, err
	}

	resp.Body.Close()
	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-time.After(500 * time.Millisecond):
	}
	return t.base.RoundTrip(req)
}
