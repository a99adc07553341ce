// Package auction implements the auction operations: partition-local state
// transitions, the client-side routing facade and the RPC registration
// table that exposes them.
package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/feed"
	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/storage"
)

// Collections a partition keeps its state in. The unexpired collection is
// an index over items whose auctions were still open at the last sweep.
const (
	colUsers     = "users"
	colItems     = "items"
	colUnexpired = "unexpired"
)

// Internal is what a partition needs from the rest of the cluster: item
// reads and the seller-side bid step, both addressed by the item's seller.
type Internal interface {
	PlaceBid2(ctx context.Context, bidder domain.Email, item domain.ItemID, amount domain.Amount) ([]domain.Bid, error)
	GetItem(ctx context.Context, item domain.ItemID) (domain.ItemInfo, error)
}

// Partition owns the users and items whose keys hash into its range. All
// writes are transactional against the partition store; feed publishes
// happen after commit and never fail the operation.
type Partition struct {
	store    storage.Store
	internal Internal
	feed     feed.Publisher

	// Now is overridable in tests.
	Now func() time.Time
}

func NewPartition(store storage.Store, internal Internal, pub feed.Publisher) *Partition {
	if pub == nil {
		pub = feed.Nop{}
	}
	return &Partition{store: store, internal: internal, feed: pub}
}

// CreateUser registers a new user identity on this partition.
func (p *Partition) CreateUser(ctx context.Context, userEmail string) (domain.UserInfo, error) {
	email, err := domain.ParseEmail(userEmail)
	if err != nil {
		return domain.UserInfo{}, err
	}
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return domain.UserInfo{}, err
	}
	defer tx.Rollback()

	if _, ok, err := tx.Get(ctx, colUsers, email.Key()); err != nil {
		return domain.UserInfo{}, err
	} else if ok {
		return domain.UserInfo{}, domain.AlreadyExistsf("user already exists: %s", email)
	}
	user := domain.NewUserInfo(email)
	if err := putJSON(ctx, tx, colUsers, email.Key(), user); err != nil {
		return domain.UserInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.UserInfo{}, err
	}
	p.publish(ctx, feed.UserCreated(email, p.now()))
	return user, nil
}

// GetUser returns the user owned by this partition.
func (p *Partition) GetUser(ctx context.Context, userEmail string) (domain.UserInfo, error) {
	email, err := domain.ParseEmail(userEmail)
	if err != nil {
		return domain.UserInfo{}, err
	}
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return domain.UserInfo{}, err
	}
	defer tx.Rollback()
	return getUser(ctx, tx, email)
}

// CreateItem lists a new item for auction. The opening amount is recorded
// as the seller's own first bid.
func (p *Partition) CreateItem(ctx context.Context, sellerEmail, itemName, imageURL string, expiration time.Time, startAmount domain.Amount) (domain.ItemInfo, error) {
	seller, err := domain.ParseEmail(sellerEmail)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	id, err := domain.ParseItemID(seller, itemName)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	now := p.now()
	if !expiration.After(now) {
		return domain.ItemInfo{}, &domain.Error{Code: domain.CodeInvalidInput, Message: fmt.Sprintf("expiration must be in the future: %s", expiration.Format(time.RFC3339))}
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	defer tx.Rollback()

	if _, err := getUser(ctx, tx, seller); err != nil {
		return domain.ItemInfo{}, err
	}
	if _, ok, err := tx.Get(ctx, colItems, id.Key()); err != nil {
		return domain.ItemInfo{}, err
	} else if ok {
		return domain.ItemInfo{}, domain.AlreadyExistsf("item already exists: %s", id)
	}

	item := domain.ItemInfo{
		ID:         id,
		ImageURL:   imageURL,
		Expiration: expiration.UTC(),
		Bids:       []domain.Bid{{Bidder: seller, Amount: startAmount, Time: now.UTC()}},
	}
	if err := putJSON(ctx, tx, colItems, id.Key(), item); err != nil {
		return domain.ItemInfo{}, err
	}
	if err := putJSON(ctx, tx, colUnexpired, id.Key(), id); err != nil {
		return domain.ItemInfo{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ItemInfo{}, err
	}
	p.publish(ctx, feed.ItemCreated(item, now))
	return item, nil
}

// PlaceBid runs the bidder-side step of the two-step bid protocol: record
// the item on the bidder's user record, then forward the bid to the
// seller's partition. The local step has union semantics, so a retried bid
// re-runs it harmlessly before the seller partition re-validates. On
// success the item's bid history, now ending with this bid, is returned.
func (p *Partition) PlaceBid(ctx context.Context, bidderEmail, sellerEmail, itemName string, bidAmount domain.Amount) ([]domain.Bid, error) {
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

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	user, err := getUser(ctx, tx, bidder)
	if err != nil {
		return nil, err
	}
	if err := putJSON(ctx, tx, colUsers, bidder.Key(), user.AddItemBidding(id)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return p.internal.PlaceBid2(ctx, bidder, id, bidAmount)
}

// PlaceBid2 is the seller-side step: validate against the item's current
// state and append the bid. Runs on the partition owning the item. The
// highest bidder is checked before the amount, so the current leader gets
// the self-outbid answer whatever amount they send.
func (p *Partition) PlaceBid2(ctx context.Context, bidderEmail, sellerEmail, itemName string, bidAmount domain.Amount) ([]domain.Bid, error) {
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
	now := p.now()

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item.Expired(now) {
		return nil, domain.ErrAuctionExpired
	}
	highest := item.HighestBid()
	if highest.Bidder.Equal(bidder) {
		return nil, domain.ErrSelfOutbid
	}
	if !bidAmount.GreaterThan(highest.Amount) {
		return nil, domain.ErrBidTooLow
	}

	bid := domain.Bid{Bidder: bidder, Amount: bidAmount, Time: now.UTC()}
	updated := item.AddBid(bid)
	if err := putJSON(ctx, tx, colItems, id.Key(), updated); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	p.publish(ctx, feed.BidPlaced(id, bid, now))
	return updated.Bids, nil
}

// GetItem returns one item owned by this partition.
func (p *Partition) GetItem(ctx context.Context, sellerEmail, itemName string) (domain.ItemInfo, error) {
	seller, err := domain.ParseEmail(sellerEmail)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	id, err := domain.ParseItemID(seller, itemName)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return domain.ItemInfo{}, err
	}
	defer tx.Rollback()
	return getItem(ctx, tx, id)
}

// GetItemsSelling returns every item the seller has listed on this
// partition.
func (p *Partition) GetItemsSelling(ctx context.Context, sellerEmail string) ([]domain.ItemInfo, error) {
	seller, err := domain.ParseEmail(sellerEmail)
	if err != nil {
		return nil, err
	}
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if _, err := getUser(ctx, tx, seller); err != nil {
		return nil, err
	}
	pairs, err := tx.Enumerate(ctx, colItems)
	if err != nil {
		return nil, err
	}
	items := []domain.ItemInfo{}
	for _, pair := range pairs {
		var item domain.ItemInfo
		if err := json.Unmarshal(pair.Value, &item); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", pair.Key, err)
		}
		if item.ID.Seller.Equal(seller) {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetItemsBidding resolves the user's bidding references across the
// cluster. References to items that no longer resolve are skipped, since
// the bidder-side bid step can outlive a failed or aged-out item.
func (p *Partition) GetItemsBidding(ctx context.Context, userEmail string) ([]domain.ItemInfo, error) {
	user, err := p.GetUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	items := []domain.ItemInfo{}
	for _, id := range user.ItemsBidding {
		item, err := p.internal.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// GetAuctionItems returns this partition's unexpired items.
func (p *Partition) GetAuctionItems(ctx context.Context) ([]domain.ItemInfo, error) {
	now := p.now()
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	pairs, err := tx.Enumerate(ctx, colUnexpired)
	if err != nil {
		return nil, err
	}
	items := []domain.ItemInfo{}
	for _, pair := range pairs {
		value, ok, err := tx.Get(ctx, colItems, pair.Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var item domain.ItemInfo
		if err := json.Unmarshal(value, &item); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", pair.Key, err)
		}
		if !item.Expired(now) {
			items = append(items, item)
		}
	}
	return items, nil
}

// SweepExpired drops expired items from the unexpired index and reports how
// many it removed. Item records themselves are kept.
func (p *Partition) SweepExpired(ctx context.Context) (int, error) {
	now := p.now()
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	pairs, err := tx.Enumerate(ctx, colUnexpired)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, pair := range pairs {
		value, ok, err := tx.Get(ctx, colItems, pair.Key)
		if err != nil {
			return 0, err
		}
		expired := !ok
		if ok {
			var item domain.ItemInfo
			if err := json.Unmarshal(value, &item); err != nil {
				return 0, fmt.Errorf("decode item %s: %w", pair.Key, err)
			}
			expired = item.Expired(now)
		}
		if expired {
			if err := tx.Delete(ctx, colUnexpired, pair.Key); err != nil {
				return 0, err
			}
			removed++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}

func (p *Partition) publish(ctx context.Context, ev feed.Event) {
	if err := p.feed.Publish(ctx, ev); err != nil {
		slog.Warn("feed publish failed", "type", ev.Type, "err", err)
	}
}

func (p *Partition) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func getUser(ctx context.Context, tx storage.Tx, email domain.Email) (domain.UserInfo, error) {
	value, ok, err := tx.Get(ctx, colUsers, email.Key())
	if err != nil {
		return domain.UserInfo{}, err
	}
	if !ok {
		return domain.UserInfo{}, domain.NotFoundf("user not found: %s", email)
	}
	var user domain.UserInfo
	if err := json.Unmarshal(value, &user); err != nil {
		return domain.UserInfo{}, fmt.Errorf("decode user %s: %w", email.Key(), err)
	}
	return user, nil
}

func getItem(ctx context.Context, tx storage.Tx, id domain.ItemID) (domain.ItemInfo, error) {
	value, ok, err := tx.Get(ctx, colItems, id.Key())
	if err != nil {
		return domain.ItemInfo{}, err
	}
	if !ok {
		return domain.ItemInfo{}, domain.NotFoundf("item not found: %s", id)
	}
	var item domain.ItemInfo
	if err := json.Unmarshal(value, &item); err != nil {
		return domain.ItemInfo{}, fmt.Errorf("decode item %s: %w", id.Key(), err)
	}
	return item, nil
}

func putJSON(ctx context.Context, tx storage.Tx, collection, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Set(ctx, collection, key, value)
}
