package hypixel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Page struct {
	Success       bool      `json:"success"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"totalPages"`
	TotalAuctions int       `json:"totalAuctions"`
	LastUpdated   int64     `json:"lastUpdated"`
	Auctions      []Auction `json:"auctions"`
}

func (p *Page) LastUpdatedTime() time.Time {
	return time.UnixMilli(p.LastUpdated).UTC()
}

type Auction struct {
	UUID             string    `json:"uuid"`
	Auctioneer       string    `json:"auctioneer"`
	ProfileID        string    `json:"profile_id"`
	Coop             []string  `json:"coop"`
	Start            int64     `json:"start"`
	End              int64     `json:"end"`
	ItemName         string    `json:"item_name"`
	ItemLore         string    `json:"item_lore"`
	ItemUUID         *string   `json:"item_uuid,omitempty"`
	Extra            string    `json:"extra"`
	Category         string    `json:"category"`
	Tier             string    `json:"tier"`
	StartingBid      int64     `json:"starting_bid"`
	ItemBytes        ItemBytes `json:"item_bytes"`
	Claimed          bool      `json:"claimed"`
	ClaimedBidders   []string  `json:"claimed_bidders"`
	HighestBidAmount int64     `json:"highest_bid_amount"`
	LastUpdated      int64     `json:"last_updated"`
	Bin              bool      `json:"bin"`
	Bids             []Bid     `json:"bids"`
}

func (a *Auction) StartTime() time.Time       { return time.UnixMilli(a.Start).UTC() }
func (a *Auction) EndTime() time.Time         { return time.UnixMilli(a.End).UTC() }
func (a *Auction) LastUpdatedTime() time.Time { return time.UnixMilli(a.LastUpdated).UTC() }

type Bid struct {
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	ProfileID string `json:"profile_id"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// ItemBytes is the item payload text. The feed sends either a plain
// string, null, or the older {"type": 0, "data": "..."} object. Any other
// shape leaves Valid false and sets Err so the listing alone is skipped.
type ItemBytes struct {
	Data  string
	Valid bool
	Err   error
}

func NewItemBytes(data string) ItemBytes {
	return ItemBytes{Data: data, Valid: true}
}

// Present reports whether the listing carried a payload at all.
func (b ItemBytes) Present() bool {
	return b.Valid || b.Err != nil
}

func (b *ItemBytes) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*b = ItemBytes{}
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*b = ItemBytes{Err: fmt.Errorf("item_bytes: %w", err)}
			return nil
		}
		*b = ItemBytes{Data: s, Valid: true}
		return nil
	case '{':
		var obj struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			*b = ItemBytes{Err: fmt.Errorf("item_bytes: %w", err)}
			return nil
		}
		data := bytes.TrimSpace(obj.Data)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			*b = ItemBytes{}
			return nil
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*b = ItemBytes{Err: fmt.Errorf("item_bytes.data: unexpected json %.16s", data)}
			return nil
		}
		*b = ItemBytes{Data: s, Valid: true}
		return nil
	}
	*b = ItemBytes{Err: fmt.Errorf("item_bytes: unexpected json %.16s", raw)}
	return nil
}

func (b ItemBytes) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(b.Data)
}
