package auction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/jsonrpc"
)

// Register wires every partition operation into the dispatcher. Parameter
// names here are the wire contract; order matters for positional callers.
func Register(d *jsonrpc.Dispatcher, p *Partition) {
	d.Register("CreateUser", []string{"userEmail"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			email, err := jsonrpc.Arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			return p.CreateUser(ctx, email)
		})

	d.Register("GetUser", []string{"userEmail"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			email, err := jsonrpc.Arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			return p.GetUser(ctx, email)
		})

	d.Register("CreateItem", []string{"sellerEmail", "itemName", "imageUrl", "expiration", "startAmount"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			seller, err := jsonrpc.Arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			name, err := jsonrpc.Arg[string](args, 1)
			if err != nil {
				return nil, err
			}
			imageURL, err := jsonrpc.Arg[string](args, 2)
			if err != nil {
				return nil, err
			}
			expiration, err := jsonrpc.Arg[time.Time](args, 3)
			if err != nil {
				return nil, err
			}
			startAmount, err := jsonrpc.Arg[domain.Amount](args, 4)
			if err != nil {
				return nil, err
			}
			return p.CreateItem(ctx, seller, name, imageURL, expiration, startAmount)
		})

	d.Register("PlaceBid", []string{"bidderEmail", "sellerEmail", "itemName", "bidAmount"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			bidder, seller, name, amount, err := bidArgs(args)
			if err != nil {
				return nil, err
			}
			return p.PlaceBid(ctx, bidder, seller, name, amount)
		})

	d.Register("PlaceBid2", []string{"bidderEmail", "sellerEmail", "itemName", "bidAmount"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			bidder, seller, name, amount, err := bidArgs(args)
			if err != nil {
				return nil, err
			}
			return p.PlaceBid2(ctx, bidder, seller, name, amount)
		})

	d.Register("GetItem", []string{"sellerEmail", "itemName"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			seller, err := jsonrpc.Arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			name, err := jsonrpc.Arg[string](args, 1)
			if err != nil {
				return nil, err
			}
			return p.GetItem(ctx, seller, name)
		})

	d.Register("GetItemsBidding", []string{"userEmail"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			email, err := jsonrpc.Arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			return p.GetItemsBidding(ctx, email)
		})

	d.Register("GetItemsSelling", []string{"sellerEmail"},
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			email, err := jsonrpc.Arg[string](args, 0)
			if err != nil {
				return nil, err
			}
			return p.GetItemsSelling(ctx, email)
		})

	d.Register("GetAuctionItems", nil,
		func(ctx context.Context, args []json.RawMessage) (any, error) {
			return p.GetAuctionItems(ctx)
		})
}

func bidArgs(args []json.RawMessage) (bidder, seller, name string, amount domain.Amount, err error) {
	if bidder, err = jsonrpc.Arg[string](args, 0); err != nil {
		return
	}
	if seller, err = jsonrpc.Arg[string](args, 1); err != nil {
		return
	}
	if name, err = jsonrpc.Arg[string](args, 2); err != nil {
		return
	}
	amount, err = jsonrpc.Arg[domain.Amount](args, 3)
	return
}
