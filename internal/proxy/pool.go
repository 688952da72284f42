package proxy

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// benchDuration is how long a failed proxy sits out before rejoining
// rotation.
const benchDuration = 5 * time.Minute

// Pool rotates outbound requests across a list of proxies, benching
// ones that recently failed.
type Pool struct {
	proxies []string
	index   int
	mu      sync.Mutex
	failed  map[string]time.Time
	bench   time.Duration
}

// NewPool creates a Pool over the given proxy URLs. A nil or empty list
// yields a pool that always answers with the empty string (direct
// connection).
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
		bench:   benchDuration,
	}
}

// Next returns the next healthy proxy from the pool.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failTime, ok := p.failed[proxy]; ok {
			if time.Since(failTime) < p.bench {
				if p.index == start {
					// Every proxy is benched; hand one out anyway
					// rather than stalling the crawl.
					return proxy
				}
				continue
			}
			delete(p.failed, proxy)
		}

		return proxy
	}
}

// MarkFailed benches a proxy so it is skipped for a while.
func (p *Pool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = time.Now()
}

// MarkHealthy clears the failure status of a proxy.
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// Size returns the number of configured proxies.
func (p *Pool) Size() int {
	return len(p.proxies)
}

// TransportProxy adapts the pool to http.Transport.Proxy, choosing a
// proxy per request. With an empty pool every request goes direct.
func (p *Pool) TransportProxy() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		next := p.Next()
		if next == "" {
			return nil, nil
		}
		return url.Parse(next)
	}
}
