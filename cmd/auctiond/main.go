// auctiond hosts one auction partition: it serves the partition's RPC
// operations over HTTP (and optionally the framed pipe transport), sweeps
// expired items, and reaches sibling partitions through the cluster
// discovery API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/auction"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/breaker"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/config"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/feed"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/jsonrpc"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/resolve"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/storage"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/storage/memory"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/storage/sqlite"
)

func main() {
	cfgPath := flag.String("config", "auction.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("auctiond: %v", err)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	pub, err := openFeed(cfg.Feed)
	if err != nil {
		return err
	}
	defer pub.Close()

	httpClient := &http.Client{
		Transport: &breaker.Transport{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenInterval:     cfg.Breaker.OpenInterval,
			IdleEviction:     cfg.Breaker.IdleEviction,
		},
	}
	resolver := resolve.NewResolver(cfg.Cluster.Discovery, httpClient)
	resolver.TTL = cfg.Resolver.CacheTTL
	proxy := auction.NewProxy(resolver, cfg.Cluster.Service, &jsonrpc.HTTPClient{Client: httpClient})

	part := auction.NewPartition(store, proxy, pub)
	dispatcher := jsonrpc.NewDispatcher()
	auction.Register(dispatcher, part)

	errCh := make(chan error, 3)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: jsonrpc.Handler(dispatcher, cfg.Server.AllowOrigin),
	}
	go func() {
		log.Printf("node=%s partition=%d/%d listening http=%s",
			cfg.Server.NodeID, cfg.Cluster.PartitionIndex, cfg.Cluster.Partitions, cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var pipeServer *jsonrpc.PipeServer
	if cfg.Server.PipeAddr != "" {
		ln, err := net.Listen("tcp", cfg.Server.PipeAddr)
		if err != nil {
			return err
		}
		pipeServer = jsonrpc.NewPipeServer(dispatcher)
		go func() {
			log.Printf("listening pipe=%s", cfg.Server.PipeAddr)
			if err := pipeServer.Serve(ctx, ln); err != nil {
				errCh <- err
			}
		}()
	}

	go sweepLoop(ctx, part, cfg.Auction.SweepInterval)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if pipeServer != nil {
		_ = pipeServer.Close()
	}
	return nil
}

func sweepLoop(ctx context.Context, part *auction.Partition, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := part.SweepExpired(ctx)
			if err != nil {
				log.Printf("sweep expired: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("sweep removed %d expired items", removed)
			}
		}
	}
}

func openStore(cfg config.StoreConfig) (storage.Store, error) {
	switch cfg.Engine {
	case "memory":
		return memory.New(), nil
	default:
		return sqlite.Open(cfg.Path)
	}
}

func openFeed(cfg config.FeedConfig) (feed.Publisher, error) {
	var pubs feed.Multi
	if cfg.Kafka.Enabled {
		p, err := feed.NewKafkaPublisher(feed.KafkaConfig{
			Enabled:  true,
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}
	if cfg.RabbitMQ.Enabled {
		p, err := feed.NewRabbitPublisher(feed.RabbitConfig{
			Enabled:  true,
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		})
		if err != nil {
			pubs.Close()
			return nil, err
		}
		pubs = append(pubs, p)
	}
	if len(pubs) == 0 {
		return feed.Nop{}, nil
	}
	return pubs, nil
}
