package feed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/backoff"

	"github.com/twmb/franz-go/pkg/kgo"
)

type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
	TLS      KafkaTLSConfig
}

type KafkaTLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
}

func (c KafkaConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return errors.New("feed.kafka.brokers is required")
	}
	if c.Topic == "" {
		return errors.New("feed.kafka.topic is required")
	}
	return nil
}

// KafkaPublisher writes events to one Kafka topic, keyed so one seller's
// activity stays in order on a single topic partition.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	backoff backoff.Policy
}

func NewKafkaPublisher(cfg KafkaConfig, opts ...kgo.Opt) (*KafkaPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	}
	if cfg.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.TLS.Enabled {
		kopts = append(kopts, kgo.DialTLSConfig(&tls.Config{InsecureSkipVerify: cfg.TLS.InsecureSkipVerify}))
	}
	kopts = append(kopts, opts...)

	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}
	return &KafkaPublisher{client: cl, topic: cfg.Topic, backoff: backoff.New()}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	rec := &kgo.Record{Topic: p.topic, Key: []byte(ev.Key()), Value: value}
	for attempt := 0; ; attempt++ {
		err := p.client.ProduceSync(ctx, rec).FirstErr()
		if err == nil {
			return nil
		}
		if derr := p.backoff.Delay(ctx, attempt); derr != nil {
			return fmt.Errorf("publish %s event: %w", ev.Type, err)
		}
	}
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
