// Package feed publishes auction activity to external brokers. Publishing
// is best-effort: a partition never fails a committed operation because the
// feed is down.
package feed

import (
	"context"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/domain"
)

const (
	TypeUserCreated = "user_created"
	TypeItemCreated = "item_created"
	TypeBidPlaced   = "bid_placed"
)

// Event is one feed record. Fields not relevant to the event type are
// omitted from the wire form.
type Event struct {
	Type          string    `json:"type"`
	OccurredAtUTC time.Time `json:"occurred_at_utc"`
	User          string    `json:"user,omitempty"`
	Seller        string    `json:"seller,omitempty"`
	Item          string    `json:"item,omitempty"`
	Bidder        string    `json:"bidder,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Expiration    time.Time `json:"expiration,omitempty"`
}

// Key groups events of one seller or user onto one broker partition.
func (e Event) Key() string {
	if e.Seller != "" {
		return e.Seller
	}
	return e.User
}

func UserCreated(email domain.Email, at time.Time) Event {
	return Event{Type: TypeUserCreated, OccurredAtUTC: at.UTC(), User: email.Key()}
}

func ItemCreated(item domain.ItemInfo, at time.Time) Event {
	ev := Event{
		Type:          TypeItemCreated,
		OccurredAtUTC: at.UTC(),
		Seller:        item.ID.Seller.Key(),
		Item:          item.ID.Name,
		Expiration:    item.Expiration.UTC(),
	}
	if len(item.Bids) > 0 {
		ev.Amount = item.HighestBid().Amount.String()
	}
	return ev
}

func BidPlaced(item domain.ItemID, bid domain.Bid, at time.Time) Event {
	return Event{
		Type:          TypeBidPlaced,
		OccurredAtUTC: at.UTC(),
		Seller:        item.Seller.Key(),
		Item:          item.Name,
		Bidder:        bid.Bidder.Key(),
		Amount:        bid.Amount.String(),
	}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event. Used when no feed is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans one event out to several brokers. The first publish error is
// returned, after every publisher was attempted.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
