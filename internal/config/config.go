// Package config loads daemon configuration from a file with environment
// overrides (AUCTION_ prefix, dots replaced by underscores).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cluster  ClusterConfig  `mapstructure:"cluster"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Store    StoreConfig    `mapstructure:"store"`
	Auction  AuctionConfig  `mapstructure:"auction"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

type ServerConfig struct {
	NodeID string `mapstructure:"node_id"`
	// HTTPAddr is the query-string RPC listener.
	HTTPAddr string `mapstructure:"http_addr"`
	// PipeAddr enables the framed byte-stream listener when non-empty.
	PipeAddr    string `mapstructure:"pipe_addr"`
	AllowOrigin string `mapstructure:"allow_origin"`
}

type ClusterConfig struct {
	// Discovery is the base URL of the cluster discovery API.
	Discovery string `mapstructure:"discovery"`
	Service   string `mapstructure:"service"`
	// Partitions is the partition count of the uniform topology; ignored
	// when the discovery API serves the partition list.
	Partitions int `mapstructure:"partitions"`
	// PartitionIndex is which partition this node hosts.
	PartitionIndex int `mapstructure:"partition_index"`
}

type ResolverConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	OpenInterval     time.Duration `mapstructure:"open_interval"`
	IdleEviction     time.Duration `mapstructure:"idle_eviction"`
}

type StoreConfig struct {
	// Engine is "sqlite" or "memory".
	Engine string `mapstructure:"engine"`
	Path   string `mapstructure:"path"`
}

type AuctionConfig struct {
	// SweepInterval is how often the expired-item index sweep runs.
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	PartialResults bool          `mapstructure:"partial_results"`
}

type FeedConfig struct {
	Kafka    KafkaFeedConfig  `mapstructure:"kafka"`
	RabbitMQ RabbitFeedConfig `mapstructure:"rabbitmq"`
}

type KafkaFeedConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type RabbitFeedConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("auction")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.allow_origin", "*")
	v.SetDefault("cluster.service", "Auction")
	v.SetDefault("cluster.partitions", 1)
	v.SetDefault("resolver.cache_ttl", 5*time.Minute)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.open_interval", 30*time.Second)
	v.SetDefault("breaker.idle_eviction", time.Minute)
	v.SetDefault("store.engine", "sqlite")
	v.SetDefault("store.path", "data/auction.db")
	v.SetDefault("auction.sweep_interval", time.Minute)
	v.SetDefault("auction.partial_results", false)
	v.SetDefault("feed.kafka.topic", "auction-events")
	v.SetDefault("feed.rabbitmq.exchange", "auction")
}

func (c Config) Validate() error {
	if c.Server.NodeID == "" {
		return fmt.Errorf("server.node_id is required")
	}
	if c.Cluster.Discovery == "" {
		return fmt.Errorf("cluster.discovery is required")
	}
	if c.Cluster.Partitions < 1 {
		return fmt.Errorf("cluster.partitions must be >= 1")
	}
	if c.Cluster.PartitionIndex < 0 || c.Cluster.PartitionIndex >= c.Cluster.Partitions {
		return fmt.Errorf("cluster.partition_index must be in [0, %d)", c.Cluster.Partitions)
	}
	switch c.Store.Engine {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported store engine %q", c.Store.Engine)
	}
	if c.Store.Engine == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite engine")
	}
	if c.Feed.Kafka.Enabled && len(c.Feed.Kafka.Brokers) == 0 {
		return fmt.Errorf("feed.kafka.brokers is required")
	}
	if c.Feed.RabbitMQ.Enabled && c.Feed.RabbitMQ.URL == "" {
		return fmt.Errorf("feed.rabbitmq.url is required")
	}
	return nil
}
