// Package resolve maps a service name and partition key to a live endpoint
// address through the cluster's discovery API, with a sliding cache and
// forced re-resolution when a cached address turns out to be stale.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	apiVersion = "1.0"
	// Partition keys are signed integers on the wire.
	partitionKeyTypeInt = "2"

	defaultTTL = 5 * time.Minute
)

// EndpointSet is one resolution result: the listeners published by the
// partition's primary replica, keyed by listener name. Version identifies
// the cluster's view of the partition; re-resolution sends it back so the
// discovery service can answer with a strictly newer view.
type EndpointSet struct {
	Version   string
	Addresses map[string]string
}

// Address returns the address of the named listener, or "" when the
// replica publishes no listener under that name.
func (s EndpointSet) Address(name string) string {
	return s.Addresses[name]
}

// Primary returns the address client calls should target: the unnamed
// default listener when one exists, otherwise the first listener by name.
func (s EndpointSet) Primary() string {
	if addr, ok := s.Addresses[""]; ok {
		return addr
	}
	names := make([]string, 0, len(s.Addresses))
	for name := range s.Addresses {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		return s.Addresses[names[0]]
	}
	return ""
}

type cached struct {
	set     EndpointSet
	expires time.Time
}

// Resolver caches partition resolutions per service and key. The cache is
// sliding: every hit pushes the entry's expiry out by the TTL. A forced
// resolve bypasses the cache and carries the previous version hint.
type Resolver struct {
	// Discovery is the base URL of the cluster discovery API.
	Discovery string
	Client    *http.Client
	TTL       time.Duration

	Now func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func NewResolver(discovery string, client *http.Client) *Resolver {
	return &Resolver{Discovery: discovery, Client: client}
}

// Resolve resolves a singleton service.
func (r *Resolver) Resolve(ctx context.Context, service string) (EndpointSet, error) {
	return r.resolve(ctx, service, nil, false)
}

// ResolvePartition resolves the partition of service owning key.
func (r *Resolver) ResolvePartition(ctx context.Context, service string, key int32) (EndpointSet, error) {
	return r.resolve(ctx, service, &key, false)
}

func (r *Resolver) resolve(ctx context.Context, service string, key *int32, force bool) (EndpointSet, error) {
	ck := cacheKey(service, key)
	now := r.now()

	var previous string
	r.mu.Lock()
	if entry, ok := r.cache[ck]; ok {
		if !force && now.Before(entry.expires) {
			entry.expires = now.Add(r.ttl())
			r.cache[ck] = entry
			r.mu.Unlock()
			return entry.set, nil
		}
		previous = entry.set.Version
	}
	r.mu.Unlock()

	set, err := r.fetch(ctx, service, key, previous)
	if err != nil {
		return EndpointSet{}, err
	}

	r.mu.Lock()
	if r.cache == nil {
		r.cache = make(map[string]cached)
	}
	r.cache[ck] = cached{set: set, expires: r.now().Add(r.ttl())}
	r.mu.Unlock()
	return set, nil
}

func (r *Resolver) fetch(ctx context.Context, service string, key *int32, previous string) (EndpointSet, error) {
	q := url.Values{}
	q.Set("api-version", apiVersion)
	if key != nil {
		q.Set("PartitionKeyType", partitionKeyTypeInt)
		q.Set("PartitionKeyValue", strconv.FormatInt(int64(*key), 10))
	}
	if previous != "" {
		q.Set("PreviousRspVersion", previous)
	}
	endpoint := fmt.Sprintf("%s/Services/%s/$/ResolvePartition?%s",
		r.Discovery, url.PathEscape(service), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return EndpointSet{}, err
	}
	resp, err := r.client().Do(req)
	if err != nil {
		return EndpointSet{}, fmt.Errorf("resolve %s: %w", service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return EndpointSet{}, fmt.Errorf("resolve %s: discovery returned http %d", service, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return EndpointSet{}, err
	}
	// The response nests one JSON document inside another: each entry's
	// Address field is itself a JSON object mapping listener names to
	// addresses, so the useful payload needs a second decode.
	var outer struct {
		Version   string `json:"Version"`
		Endpoints []struct {
			Kind    string `json:"Kind"`
			Address string `json:"Address"`
		} `json:"Endpoints"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return EndpointSet{}, fmt.Errorf("resolve %s: decode response: %w", service, err)
	}
	if len(outer.Endpoints) == 0 {
		return EndpointSet{}, fmt.Errorf("resolve %s: no endpoints", service)
	}
	var inner struct {
		Endpoints map[string]string `json:"Endpoints"`
	}
	if err := json.Unmarshal([]byte(outer.Endpoints[0].Address), &inner); err != nil {
		return EndpointSet{}, fmt.Errorf("resolve %s: decode endpoint document: %w", service, err)
	}
	set := EndpointSet{Version: outer.Version, Addresses: inner.Endpoints}
	if set.Primary() == "" {
		return EndpointSet{}, fmt.Errorf("resolve %s: no usable listener address", service)
	}
	return set, nil
}

// Call resolves a singleton service and runs fn against its primary address.
// When fn reports a connect failure, the resolution is forced once and fn is
// retried once against the fresh address.
func (r *Resolver) Call(ctx context.Context, service string, fn func(ctx context.Context, endpoint string) error) error {
	return r.call(ctx, service, nil, fn)
}

// CallPartition is Call for a partitioned service.
func (r *Resolver) CallPartition(ctx context.Context, service string, key int32, fn func(ctx context.Context, endpoint string) error) error {
	return r.call(ctx, service, &key, fn)
}

func (r *Resolver) call(ctx context.Context, service string, key *int32, fn func(ctx context.Context, endpoint string) error) error {
	set, err := r.resolve(ctx, service, key, false)
	if err != nil {
		return err
	}
	err = fn(ctx, set.Primary())
	if err == nil || !IsConnectFailure(err) {
		return err
	}

	// The cached address points at a node that is gone. Resolve past the
	// cache, then try exactly once more.
	set, rerr := r.resolve(ctx, service, key, true)
	if rerr != nil {
		return rerr
	}
	return fn(ctx, set.Primary())
}

func cacheKey(service string, key *int32) string {
	if key == nil {
		return service
	}
	return service + "|" + strconv.FormatInt(int64(*key), 10)
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *Resolver) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return defaultTTL
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
