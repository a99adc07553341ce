package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/partition"
)

// Topology enumerates a partitioned service: one representative key per
// partition, enough to address every partition in a fan-out.
type Topology interface {
	PartitionKeys(ctx context.Context) ([]int32, error)
}

// StaticTopology is a fixed key list, one per partition.
type StaticTopology []int32

func (s StaticTopology) PartitionKeys(ctx context.Context) ([]int32, error) {
	return append([]int32(nil), s...), nil
}

// UniformTopology describes n partitions splitting the key space into equal
// ranges; each partition is addressed by its range's low key.
type UniformTopology int

func (n UniformTopology) PartitionKeys(ctx context.Context) ([]int32, error) {
	if n < 1 {
		return nil, fmt.Errorf("topology needs at least one partition, got %d", int(n))
	}
	keys := make([]int32, int(n))
	for i := range keys {
		keys[i] = partition.LowKey(i, int(n))
	}
	return keys, nil
}

// ClusterTopology asks the discovery API which partitions a service has.
type ClusterTopology struct {
	Discovery string
	Service   string
	Client    *http.Client
}

func (t *ClusterTopology) PartitionKeys(ctx context.Context) ([]int32, error) {
	endpoint := fmt.Sprintf("%s/Services/%s/$/GetPartitions?api-version=%s",
		t.Discovery, url.PathEscape(t.Service), apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list partitions of %s: %w", t.Service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list partitions of %s: discovery returned http %d", t.Service, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var out struct {
		Items []struct {
			LowKey int32 `json:"LowKey"`
		} `json:"Items"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("list partitions of %s: decode response: %w", t.Service, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("list partitions of %s: empty partition list", t.Service)
	}
	keys := make([]int32, len(out.Items))
	for i, item := range out.Items {
		keys[i] = item.LowKey
	}
	return keys, nil
}
