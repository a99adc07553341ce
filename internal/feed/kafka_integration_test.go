package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestKafkaPublisherIntegration(t *testing.T) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker/container runtime unavailable: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        "docker.redpanda.com/redpandadata/redpanda:v24.1.8",
		ExposedPorts: []string{"9092/tcp"},
		Cmd:          []string{"redpanda", "start", "--overprovisioned", "--smp", "1", "--memory", "512M", "--reserve-memory", "0M", "--check=false", "--node-id", "0", "--kafka-addr", "0.0.0.0:9092", "--advertise-kafka-addr", "127.0.0.1:9092"},
		WaitingFor:   wait.ForLog("Successfully started Redpanda"),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker/container runtime unavailable: %v", err)
	}
	defer func() { _ = ctr.Terminate(ctx) }()

	host, _ := ctr.Host(ctx)
	port, _ := ctr.MappedPort(ctx, "9092")
	broker := fmt.Sprintf("%s:%s", host, port.Port())

	pub, err := NewKafkaPublisher(KafkaConfig{Enabled: true, Brokers: []string{broker}, Topic: "auction-events"})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer pub.Close()

	seller, _ := domain.ParseEmail("s@x.com")
	bidder, _ := domain.ParseEmail("b@x.com")
	item, _ := domain.ParseItemID(seller, "Widget")
	amount, _ := domain.ParseAmount("15.00")

	pubCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pub.Publish(pubCtx, BidPlaced(item, domain.Bid{Bidder: bidder, Amount: amount, Time: time.Now()}, time.Now())); err != nil {
		t.Fatalf("publish: %v", err)
	}

	consumer, err := kgo.NewClient(kgo.SeedBrokers(broker), kgo.ConsumeTopics("auction-events"))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	defer consumer.Close()

	consumeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(consumeCtx)
	if errs := fetches.Errors(); len(errs) > 0 {
		t.Fatalf("poll: %v", errs[0].Err)
	}
	records := fetches.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	var ev Event
	if err := json.Unmarshal(records[0].Value, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != TypeBidPlaced || ev.Seller != "s@x.com" || ev.Amount != "15.00" {
		t.Fatalf("event %+v", ev)
	}
	if string(records[0].Key) != "s@x.com" {
		t.Fatalf("record key %q", records[0].Key)
	}
}
