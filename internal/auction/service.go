package auction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/resolve"
)

// Service is the client-side facade: it validates inputs, routes each
// operation to the partition owning the relevant identity, and fans
// listing queries out across every partition.
type Service struct {
	proxy *Proxy
	topo  resolve.Topology

	// PartialResults controls the fan-out failure mode: when set, partitions
	// that fail a listing query are skipped instead of failing the whole
	// call.
	PartialResults bool
}

func NewService(proxy *Proxy, topo resolve.Topology) *Service {
	return &Service{proxy: proxy, topo: topo}
}

// Internal exposes the cross-partition operations partitions call on each
// other.
func (s *Service) Internal() Internal { return s.proxy }

func (s *Service) CreateUser(ctx context.Context, userEmail string) (domain.UserInfo, error) {
	email, err := domain.ParseEmail(userEmail)
	if err != nil {
		return domain.UserInfo{}, err
	}
	return s.proxy.createUser(ctx, email)
}

func (s *Service) GetUser(ctx context.Context, userEmail string) (domain.UserInfo, error) {
	email, err := domain.ParseEmail(userEmail)
	if err != nil {
		return domain.UserInfo{}, err
	}
	return s.proxy.getUser(ctx, email)
}

func (s *Service) CreateItem(ctx context.Context, sellerEmail, itemName, imageURL string, expiration time.Time, startAmount domain.Amount) (domain.ItemInfo, error) {
	seller, err := domain.ParseEmail(sellerEmail)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	id, err := domain.ParseItemID(seller, itemName)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	return s.proxy.createItem(ctx, id, imageURL, expiration, startAmount)
}

// PlaceBid routes the bid to the bidder's partition and returns the item's
// updated bid history on success.
func (s *Service) PlaceBid(ctx context.Context, bidderEmail, sellerEmail, itemName string, amount domain.Amount) ([]domain.Bid, error) {
	bidder, err := domain.ParseEmail(bidderEmail)
	if err != nil {
		return nil, err
	}
	seller, err := domain.ParseEmail(sellerEmail)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseItemID(seller, itemName)
	if err != nil {
		return nil, err
	}
	return s.proxy.placeBid(ctx, bidder, id, amount)
}

func (s *Service) GetItemsBidding(ctx context.Context, userEmail string) ([]domain.ItemInfo, error) {
	email, err := domain.ParseEmail(userEmail)
	if err != nil {
		return nil, err
	}
	return s.proxy.itemsBidding(ctx, email)
}

func (s *Service) GetItemsSelling(ctx context.Context, sellerEmail string) ([]domain.ItemInfo, error) {
	email, err := domain.ParseEmail(sellerEmail)
	if err != nil {
		return nil, err
	}
	return s.proxy.itemsSelling(ctx, email)
}

// GetAuctionItems queries every partition in parallel and merges the
// results, soonest-expiring first.
func (s *Service) GetAuctionItems(ctx context.Context) ([]domain.ItemInfo, error) {
	keys, err := s.topo.PartitionKeys(ctx)
	if err != nil {
		return nil, err
	}

	type result struct {
		items []domain.ItemInfo
		err   error
	}
	results := make([]result, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key int32) {
			defer wg.Done()
			items, err := s.proxy.auctionItems(ctx, key)
			results[i] = result{items: items, err: err}
		}(i, key)
	}
	wg.Wait()

	items := []domain.ItemInfo{}
	for _, r := range results {
		if r.err != nil {
			if s.PartialResults {
				continue
			}
			return nil, r.err
		}
		items = append(items, r.items...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Expiration.Before(items[j].Expiration)
	})
	return items, nil
}
