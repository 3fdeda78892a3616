package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Auction is the flattened row stored per listing. Item columns are nil
// when the listing carried no item payload or the payload failed to decode.
type Auction struct {
	UUID           string         `gorm:"column:uuid;primaryKey;type:text"`
	Auctioneer     string         `gorm:"type:text;index;not null"`
	ProfileID      string         `gorm:"type:text;not null"`
	Coop           StringList     `gorm:"column:coop"`
	StartTime      time.Time      `gorm:"not null"`
	EndTime        time.Time      `gorm:"not null;index"`
	ItemName       string         `gorm:"type:text;not null"`
	ItemUUID       *string        `gorm:"column:item_uuid;type:text;index"`
	ItemLore       *string        `gorm:"type:text"`
	Extra          *string        `gorm:"type:text"`
	Category       string         `gorm:"type:text;index;not null"`
	Tier           string         `gorm:"type:text;index;not null"`
	Price          int64          `gorm:"not null;index"`
	HighestBid     int64          `gorm:"not null;default:0"`
	BidCount       int            `gorm:"not null;default:0"`
	BidsJSON       datatypes.JSON `gorm:"column:bids_json"`
	Claimed        bool           `gorm:"not null;default:false;index"`
	ClaimedBidders StringList     `gorm:"column:claimed_bidders"`
	LastUpdated    time.Time      `gorm:"not null;index"`
	Bin            bool           `gorm:"not null;default:false"`

	ItemTypeID  *int32  `gorm:"column:item_type_id"`
	ItemCount   *int32  `gorm:"column:item_count"`
	ItemDamage  *int32  `gorm:"column:item_damage"`
	ItemID      *string `gorm:"column:item_id;type:text;index"`
	Unbreakable *bool
	UnitPrice   *decimal.Decimal `gorm:"type:numeric(30,6)"`

	Enchantments     StringList `gorm:"column:enchantments"`
	Runes            StringList `gorm:"column:runes"`
	UnlockedGemSlots StringList `gorm:"column:unlocked_gem_slots"`
	SlottedGems      StringList `gorm:"column:slotted_gems"`

	Reforge          *string `gorm:"type:text;index"`
	UpgradeLevel     *int16
	HotPotatoCount   *int16
	Recomb           *bool
	DungeonItemLevel *int16
	DungeonItem      *bool
	OriginTag        *string `gorm:"type:text"`
	ItemCreatedAt    *time.Time

	RedArmorColoring   *int16
	GreenArmorColoring *int16
	BlueArmorColoring  *int16

	AnvilUses              *int64
	PeltsEarned            *int64
	ChampionCombatXP       *float64 `gorm:"column:champion_combat_xp"`
	FarmedCultivating      *int64
	CompactBlocks          *int64
	HecatombSRuns          *int64 `gorm:"column:hecatomb_s_runs"`
	ExpertiseKills         *int64
	FarmingForDummiesCount *int64
	RaffleYear             *int64
	RaffleWin              *string `gorm:"type:text"`
	DyeItem                *string `gorm:"type:text"`

	PetType           *string `gorm:"type:text;index"`
	PetActive         *bool
	PetHeldItem       *string `gorm:"type:text"`
	PetExp            *float64
	PetCandyUsed      *int16
	PetTier           *string `gorm:"type:text"`
	PetSkin           *string `gorm:"type:text"`
	PetUUID           *string `gorm:"column:pet_uuid;type:text"`
	PetUniqueID       *string `gorm:"column:pet_unique_id;type:text"`
	PetHideRightClick *bool
	PetNoMove         *bool
	PetHideInfo       *bool

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Auction) TableName() string {
	return "auctions"
}

// AuctionMutableColumns are the only columns an upsert rewrites once a
// row exists. Everything else keeps its first-insert value.
var AuctionMutableColumns = []string{"last_updated", "end_time", "claimed"}
