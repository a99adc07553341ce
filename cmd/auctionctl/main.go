// auctionctl is the operator CLI: it talks to the auction service through
// the same discovery-routed client path the partitions use.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/auction"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/breaker"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/config"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/jsonrpc"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/resolve"
)

const usage = `usage: auctionctl [flags] <command> [args]

commands:
  create-user <email>
  get-user <email>
  create-item <seller> <name> <imageUrl> <expiration RFC3339> <startAmount>
  place-bid <bidder> <seller> <name> <amount>
  bidding <email>
  selling <email>
  auctions
`

func main() {
	discovery := flag.String("discovery", "http://localhost:19080", "cluster discovery base URL")
	service := flag.String("service", "Auction", "service name")
	partitions := flag.Int("partitions", 1, "partition count for fan-out queries")
	partial := flag.Bool("partial-results", false, "tolerate unreachable partitions in fan-out queries")
	configPath := flag.String("config", "", "daemon config file to take cluster settings from")
	timeout := flag.Duration("timeout", 30*time.Second, "per-command timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		*discovery = cfg.Cluster.Discovery
		*service = cfg.Cluster.Service
		*partitions = cfg.Cluster.Partitions
		if cfg.Auction.PartialResults {
			*partial = true
		}
	}

	httpClient := &http.Client{Transport: breaker.New(nil)}
	resolver := resolve.NewResolver(*discovery, httpClient)
	proxy := auction.NewProxy(resolver, *service, &jsonrpc.HTTPClient{Client: httpClient})
	svc := auction.NewService(proxy, resolve.UniformTopology(*partitions))
	svc.PartialResults = *partial

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := dispatch(ctx, svc, args[0], args[1:])
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	}
}

func dispatch(ctx context.Context, svc *auction.Service, command string, args []string) (any, error) {
	switch command {
	case "create-user":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: create-user <email>")
		}
		return svc.CreateUser(ctx, args[0])
	case "get-user":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: get-user <email>")
		}
		return svc.GetUser(ctx, args[0])
	case "create-item":
		if len(args) != 5 {
			return nil, fmt.Errorf("usage: create-item <seller> <name> <imageUrl> <expiration RFC3339> <startAmount>")
		}
		expiration, err := time.Parse(time.RFC3339, args[3])
		if err != nil {
			return nil, fmt.Errorf("parse expiration: %w", err)
		}
		amount, err := domain.ParseAmount(args[4])
		if err != nil {
			return nil, err
		}
		return svc.CreateItem(ctx, args[0], args[1], args[2], expiration, amount)
	case "place-bid":
		if len(args) != 4 {
			return nil, fmt.Errorf("usage: place-bid <bidder> <seller> <name> <amount>")
		}
		amount, err := domain.ParseAmount(args[3])
		if err != nil {
			return nil, err
		}
		return svc.PlaceBid(ctx, args[0], args[1], args[2], amount)
	case "bidding":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: bidding <email>")
		}
		return svc.GetItemsBidding(ctx, args[0])
	case "selling":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: selling <email>")
		}
		return svc.GetItemsSelling(ctx, args[0])
	case "auctions":
		return svc.GetAuctionItems(ctx)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}
