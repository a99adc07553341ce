package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/jsonrpc"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/resolve"

	"github.com/google/uuid"
)

// Proxy calls auction operations on whichever partition owns a key. It
// resolves the endpoint per call, so a partition moving between nodes only
// costs the resolver's one forced re-resolution.
//
// Proxy also satisfies Internal, which is how one partition reaches
// another for the seller-side bid step and cross-partition item reads.
type Proxy struct {
	Resolver *resolve.Resolver
	Service  string
	Client   *jsonrpc.HTTPClient
}

func NewProxy(resolver *resolve.Resolver, service string, client *jsonrpc.HTTPClient) *Proxy {
	if client == nil {
		client = &jsonrpc.HTTPClient{}
	}
	return &Proxy{Resolver: resolver, Service: service, Client: client}
}

// Call invokes method on the partition owning key and decodes the result
// into result when it is non-nil.
func (p *Proxy) Call(ctx context.Context, key int32, method string, params map[string]any, result any) error {
	req, err := jsonrpc.NewRequest(jsonrpc.StringID(uuid.NewString()), method, params)
	if err != nil {
		return err
	}
	var resp *jsonrpc.Response
	err = p.Resolver.CallPartition(ctx, p.Service, key, func(ctx context.Context, endpoint string) error {
		r, callErr := p.Client.Call(ctx, endpoint, req)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return err
	}
	if resp.Err != nil {
		return domain.FromRPC(resp.Err.Code, resp.Err.Message)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (p *Proxy) PlaceBid2(ctx context.Context, bidder domain.Email, item domain.ItemID, amount domain.Amount) ([]domain.Bid, error) {
	var out []domain.Bid
	err := p.Call(ctx, item.Seller.PartitionKey(), "PlaceBid2", map[string]any{
		"bidderEmail": bidder.String(),
		"sellerEmail": item.Seller.String(),
		"itemName":    item.Name,
		"bidAmount":   amount,
	}, &out)
	return out, err
}

func (p *Proxy) GetItem(ctx context.Context, item domain.ItemID) (domain.ItemInfo, error) {
	var out domain.ItemInfo
	err := p.Call(ctx, item.Seller.PartitionKey(), "GetItem", map[string]any{
		"sellerEmail": item.Seller.String(),
		"itemName":    item.Name,
	}, &out)
	return out, err
}

func (p *Proxy) createUser(ctx context.Context, email domain.Email) (domain.UserInfo, error) {
	var out domain.UserInfo
	err := p.Call(ctx, email.PartitionKey(), "CreateUser", map[string]any{
		"userEmail": email.String(),
	}, &out)
	return out, err
}

func (p *Proxy) getUser(ctx context.Context, email domain.Email) (domain.UserInfo, error) {
	var out domain.UserInfo
	err := p.Call(ctx, email.PartitionKey(), "GetUser", map[string]any{
		"userEmail": email.String(),
	}, &out)
	return out, err
}

func (p *Proxy) createItem(ctx context.Context, id domain.ItemID, imageURL string, expiration time.Time, startAmount domain.Amount) (domain.ItemInfo, error) {
	var out domain.ItemInfo
	err := p.Call(ctx, id.Seller.PartitionKey(), "CreateItem", map[string]any{
		"sellerEmail": id.Seller.String(),
		"itemName":    id.Name,
		"imageUrl":    imageURL,
		"expiration":  expiration.UTC().Format(time.RFC3339Nano),
		"startAmount": startAmount,
	}, &out)
	return out, err
}

func (p *Proxy) placeBid(ctx context.Context, bidder domain.Email, id domain.ItemID, amount domain.Amount) ([]domain.Bid, error) {
	var out []domain.Bid
	err := p.Call(ctx, bidder.PartitionKey(), "PlaceBid", map[string]any{
		"bidderEmail": bidder.String(),
		"sellerEmail": id.Seller.String(),
		"itemName":    id.Name,
		"bidAmount":   amount,
	}, &out)
	return out, err
}

func (p *Proxy) itemsBidding(ctx context.Context, email domain.Email) ([]domain.ItemInfo, error) {
	var out []domain.ItemInfo
	err := p.Call(ctx, email.PartitionKey(), "GetItemsBidding", map[string]any{
		"userEmail": email.String(),
	}, &out)
	return out, err
}

func (p *Proxy) itemsSelling(ctx context.Context, email domain.Email) ([]domain.ItemInfo, error) {
	var out []domain.ItemInfo
	err := p.Call(ctx, email.PartitionKey(), "GetItemsSelling", map[string]any{
		"sellerEmail": email.String(),
	}, &out)
	return out, err
}

func (p *Proxy) auctionItems(ctx context.Context, key int32) ([]domain.ItemInfo, error) {
	var out []domain.ItemInfo
	err := p.Call(ctx, key, "GetAuctionItems", nil, &out)
	return out, err
}
