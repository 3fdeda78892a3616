// Package item decodes listing item payloads into typed records.
//
// A payload is a tag tree shaped as {i: [entry]} where the entry carries the
// vanilla item fields and a tag compound with display data and the
// ExtraAttributes bag. Optional fields are pointers and stay nil when the
// payload does not carry them.
package item

import (
	"auctionhouse/internal/decode"
)

type Record struct {
	ID     uint16
	Count  uint8
	Damage uint16

	Unbreakable *bool
	HideFlags   *int32
	Display     Display
	Ench        []VanillaEnchant

	Attributes Attributes

	// Anomalies are shape deviations that did not prevent decoding.
	Anomalies []decode.Anomaly
}

type Display struct {
	Name  *string
	Lore  []string
	Color *int32
}

type VanillaEnchant struct {
	ID    int16
	Level int16
}

// Timestamp is either an epoch value in milliseconds or the legacy
// "M/D/YY h:mm AM" text form. Exactly one side is set.
type Timestamp struct {
	Millis *int64
	Text   *string
}

type Attributes struct {
	ID   string
	UUID *string

	Timestamp      *Timestamp
	Modifier       *string
	RarityUpgrades *bool
	UpgradeLevel   *uint8
	HotPotatoCount *uint8

	DungeonItemLevel *uint8
	DungeonItem      *bool
	OriginTag        *string
	Color            *string

	AnvilUses              *uint32
	PeltsEarned            *uint32
	ChampionCombatXP       *float64
	FarmedCultivating      *uint32
	CompactBlocks          *uint32
	HecatombSRuns          *uint32
	ExpertiseKills         *uint32
	FarmingForDummiesCount *uint32

	RaffleYear *uint32
	RaffleWin  *string
	DyeItem    *string

	Enchantments map[string]uint8
	Runes        map[string]uint8
	Gems         map[string]GemSlot

	// PetInfo is the raw embedded JSON document, decoded by DecodePet.
	PetInfo *string
}
