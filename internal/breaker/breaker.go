// Package breaker wraps an HTTP transport with a per-endpoint circuit
// breaker: endpoints that keep failing are cut off for a cooldown window
// instead of being hammered while they recover.
package breaker

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrOpen reports a request rejected without being sent because the
// endpoint's circuit is open.
var ErrOpen = errors.New("circuit breaker open")

const (
	defaultFailureThreshold = 3
	defaultOpenInterval     = 30 * time.Second
	defaultIdleEviction     = time.Minute
	evictEvery              = 100
)

// Transport is an http.RoundTripper that tracks failures per endpoint.
// An endpoint is identified by scheme, host and path; the query string is
// ignored so parameterized calls share one circuit. After FailureThreshold
// consecutive failures the circuit stays open until OpenInterval has passed
// since the last failure. Any 2xx response closes the circuit again.
//
// State for endpoints idle longer than IdleEviction is dropped on every
// hundredth call through the transport.
type Transport struct {
	Base             http.RoundTripper
	FailureThreshold int
	OpenInterval     time.Duration
	IdleEviction     time.Duration

	// Now is overridable in tests.
	Now func() time.Time

	mu      sync.Mutex
	circuit map[string]*circuit
	calls   int
}

type circuit struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	lastUsed    time.Time
}

func New(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := endpointKey(req.URL)
	c := t.acquire(key)

	// The endpoint lock guards the counters only. It is never held across
	// the round-trip, so concurrent requests to one endpoint proceed in
	// parallel.
	if err := c.throwIfOpen(t, key); err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(req)
	success := err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
	c.report(t, success)
	return resp, err
}

func (c *circuit) throwIfOpen(t *Transport, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := t.now()
	c.lastUsed = now
	if c.failures >= t.failureThreshold() && now.Sub(c.lastFailure) < t.openInterval() {
		return fmt.Errorf("%s: %w", key, ErrOpen)
	}
	return nil
}

func (c *circuit) report(t *Transport, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if success {
		c.failures = 0
		return
	}
	// The count saturates at the threshold; the open window is driven by
	// the last failure time.
	if c.failures < t.failureThreshold() {
		c.failures++
	}
	c.lastFailure = t.now()
}

func (t *Transport) acquire(key string) *circuit {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.circuit == nil {
		t.circuit = make(map[string]*circuit)
	}
	t.calls++
	if t.calls%evictEvery == 0 {
		t.evictIdleLocked()
	}
	c, ok := t.circuit[key]
	if !ok {
		c = &circuit{lastUsed: t.now()}
		t.circuit[key] = c
	}
	return c
}

func (t *Transport) evictIdleLocked() {
	cutoff := t.now().Add(-t.idleEviction())
	for key, c := range t.circuit {
		if !c.mu.TryLock() {
			continue
		}
		idle := c.lastUsed.Before(cutoff)
		c.mu.Unlock()
		if idle {
			delete(t.circuit, key)
		}
	}
}

func endpointKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.Path
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Transport) failureThreshold() int {
	if t.FailureThreshold > 0 {
		return t.FailureThreshold
	}
	return defaultFailureThreshold
}

func (t *Transport) openInterval() time.Duration {
	if t.OpenInterval > 0 {
		return t.OpenInterval
	}
	return defaultOpenInterval
}

func (t *Transport) idleEviction() time.Duration {
	if t.IdleEviction > 0 {
		return t.IdleEviction
	}
	return defaultIdleEviction
}
