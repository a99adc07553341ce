// Package domain holds the auction value types shared by every layer:
// identifiers, money amounts, bids, items and users. Values are immutable
// once constructed; mutation helpers return copies.
package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/partition"
)

const maxIdentifierLength = 100

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email is case-preserved but case-insensitive.
type Email struct {
	raw string
}

// ParseEmail validates and wraps a user identity.
func ParseEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxIdentifierLength || !emailPattern.MatchString(s) {
		return Email{}, invalidf("invalid email format: %q", s)
	}
	return Email{raw: s}, nil
}

func (e Email) String() string { return e.raw }
func (e Email) IsEmpty() bool  { return e.raw == "" }

// Key is the canonical lookup form.
func (e Email) Key() string { return strings.ToLower(e.raw) }

func (e Email) Equal(other Email) bool { return e.Key() == other.Key() }

// PartitionKey routes this identity to its owning partition.
func (e Email) PartitionKey() int32 { return partition.KeyFor(e.raw) }

func (e Email) MarshalJSON() ([]byte, error) { return json.Marshal(e.raw) }

func (e *Email) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEmail(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ItemID identifies an auction item by its seller plus item name.
// Case-preserved, case-insensitive, immutable for the item's lifetime.
type ItemID struct {
	Seller Email  `json:"seller"`
	Name   string `json:"name"`
}

// ParseItemID validates the item name and binds it to its seller.
func ParseItemID(seller Email, name string) (ItemID, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxIdentifierLength {
		return ItemID{}, invalidf("invalid item name: %q", name)
	}
	return ItemID{Seller: seller, Name: name}, nil
}

func (id ItemID) String() string { return fmt.Sprintf("Seller=%s, Name=%s", id.Seller, id.Name) }

// Key is the canonical lookup form.
func (id ItemID) Key() string { return id.Seller.Key() + "~" + strings.ToLower(id.Name) }

func (id ItemID) Equal(other ItemID) bool { return id.Key() == other.Key() }

// Amount is a money value with two decimal places, stored in minor units.
// The zero value is 0.00.
type Amount struct {
	cents int64
}

// ParseAmount accepts decimal strings such as "10", "10.5" or "10.50".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return Amount{}, invalidf("invalid amount: %q", s)
	}
	return AmountFromFloat(f), nil
}

// AmountFromFloat rounds to the nearest cent. Negative amounts are not
// representable through the public constructors.
func AmountFromFloat(f float64) Amount {
	return Amount{cents: int64(f*100 + 0.5)}
}

func (a Amount) Cents() int64              { return a.cents }
func (a Amount) GreaterThan(o Amount) bool { return a.cents > o.cents }

func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", a.cents/100, a.cents%100)
}

// MarshalJSON writes the amount as a plain JSON number so any legacy caller
// sees the decimal form it expects.
func (a Amount) MarshalJSON() ([]byte, error) { return []byte(a.String()), nil }

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Bid is immutable once created.
type Bid struct {
	Bidder Email     `json:"bidder"`
	Amount Amount    `json:"amount"`
	Time   time.Time `json:"time"`
}

// ItemInfo carries the static item data plus its append-only bid list.
// The first bid is always the seller's opening amount.
type ItemInfo struct {
	ID         ItemID    `json:"itemId"`
	ImageURL   string    `json:"imageUrl"`
	Expiration time.Time `json:"expiration"`
	Bids       []Bid     `json:"bids"`
}

// AddBid returns a copy with the bid appended; the receiver is unchanged.
func (i ItemInfo) AddBid(b Bid) ItemInfo {
	bids := make([]Bid, 0, len(i.Bids)+1)
	bids = append(bids, i.Bids...)
	bids = append(bids, b)
	i.Bids = bids
	return i
}

// HighestBid is the last entry of the append-only bid list.
func (i ItemInfo) HighestBid() Bid {
	if len(i.Bids) == 0 {
		return Bid{}
	}
	return i.Bids[len(i.Bids)-1]
}

func (i ItemInfo) Expired(now time.Time) bool { return now.After(i.Expiration) }

// UserInfo carries a user identity plus the append-only set of items the
// user has bid on. Entries are never removed; readers filter dead
// references at read time.
type UserInfo struct {
	Email        Email    `json:"email"`
	ItemsBidding []ItemID `json:"itemsBidding"`
}

func NewUserInfo(email Email) UserInfo { return UserInfo{Email: email} }

func (u UserInfo) IsBidding(id ItemID) bool {
	for _, existing := range u.ItemsBidding {
		if existing.Equal(id) {
			return true
		}
	}
	return false
}

// AddItemBidding returns a copy with id recorded. Union semantics: adding an
// already-present item returns an equal value, which is what makes the
// bidder-side step of the bid protocol idempotent.
func (u UserInfo) AddItemBidding(id ItemID) UserInfo {
	if u.IsBidding(id) {
		return u
	}
	items := make([]ItemID, 0, len(u.ItemsBidding)+1)
	items = append(items, u.ItemsBidding...)
	items = append(items, id)
	u.ItemsBidding = items
	return u
}
