// Package normalize flattens a feed listing and its decoded item into the
// storage row. Everything here is pure: no I/O and no shared state, so
// callers may run it concurrently across listings.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"auctionhouse/internal/client/hypixel"
	"auctionhouse/internal/decode"
	"auctionhouse/internal/item"
	"auctionhouse/internal/models"
)

const itemField = "item_bytes"

// Listing decodes the listing's item payload, if any, and normalizes the
// result. A payload that fails to decode is reported and the row is built
// from listing fields alone.
func Listing(l hypixel.Auction) (models.Auction, []decode.Anomaly) {
	var (
		rec       *item.Record
		anomalies []decode.Anomaly
	)
	if l.ItemBytes.Err != nil {
		anomalies = append(anomalies, decode.AnomalyFromError(l.UUID, itemField,
			decode.New(decode.KindEncoding, "", l.ItemBytes.Err)))
	} else if l.ItemBytes.Valid {
		r, err := item.Decode(l.ItemBytes.Data)
		if err != nil {
			anomalies = append(anomalies, decode.AnomalyFromError(l.UUID, itemField, err))
		} else {
			rec = r
		}
	}
	row, more := Normalize(l, rec)
	return row, append(anomalies, more...)
}

// Normalize builds the row for one listing. It never fails: a sub-field
// that cannot be interpreted is left nil and reported as an anomaly.
func Normalize(l hypixel.Auction, rec *item.Record) (models.Auction, []decode.Anomaly) {
	row := models.Auction{
		UUID:           l.UUID,
		Auctioneer:     l.Auctioneer,
		ProfileID:      l.ProfileID,
		Coop:           cloneList(l.Coop),
		StartTime:      l.StartTime(),
		EndTime:        l.EndTime(),
		ItemName:       l.ItemName,
		ItemUUID:       cloneStr(l.ItemUUID),
		ItemLore:       strPtr(l.ItemLore),
		Extra:          strPtr(l.Extra),
		Category:       l.Category,
		Tier:           l.Tier,
		Price:          l.StartingBid,
		HighestBid:     l.HighestBidAmount,
		BidCount:       len(l.Bids),
		BidsJSON:       bidsJSON(l.Bids),
		Claimed:        l.Claimed,
		ClaimedBidders: cloneList(l.ClaimedBidders),
		LastUpdated:    l.LastUpdatedTime(),
		Bin:            l.Bin,
	}
	if rec == nil {
		return row, nil
	}

	var anomalies []decode.Anomaly
	report := func(field string, err error) {
		anomalies = append(anomalies, decode.AnomalyFromError(l.UUID, field, err))
	}
	anomalies = append(anomalies, decode.WithListing(l.UUID, rec.Anomalies)...)

	a := rec.Attributes
	row.ItemTypeID = i32Ptr(int32(rec.ID))
	row.ItemCount = i32Ptr(int32(rec.Count))
	row.ItemDamage = i32Ptr(int32(rec.Damage))
	row.ItemID = strPtr(a.ID)
	row.Unbreakable = cloneBool(rec.Unbreakable)
	if rec.Count > 0 {
		unit := decimal.NewFromInt(l.StartingBid).Div(decimal.NewFromInt(int64(rec.Count))).Round(6)
		row.UnitPrice = &unit
	}

	row.Enchantments = RenderLevels(a.Enchantments)
	row.Runes = RenderLevels(a.Runes)
	unlocked, slotted, gemAnomalies := PartitionGems(a.Gems)
	row.UnlockedGemSlots = unlocked
	row.SlottedGems = slotted
	anomalies = append(anomalies, decode.WithListing(l.UUID, gemAnomalies)...)

	row.Reforge = cloneStr(a.Modifier)
	row.UpgradeLevel = u8Ptr(a.UpgradeLevel)
	row.HotPotatoCount = u8Ptr(a.HotPotatoCount)
	row.Recomb = cloneBool(a.RarityUpgrades)
	row.DungeonItemLevel = u8Ptr(a.DungeonItemLevel)
	row.DungeonItem = cloneBool(a.DungeonItem)
	row.OriginTag = cloneStr(a.OriginTag)

	if created, err := ParseItemTimestamp(a.Timestamp); err != nil {
		report(timestampField, err)
	} else {
		row.ItemCreatedAt = created
	}

	if a.Color != nil {
		if r, g, b, err := ParseColor(*a.Color); err != nil {
			report(colorField, err)
		} else {
			row.RedArmorColoring = &r
			row.GreenArmorColoring = &g
			row.BlueArmorColoring = &b
		}
	}

	row.AnvilUses = u32Ptr(a.AnvilUses)
	row.PeltsEarned = u32Ptr(a.PeltsEarned)
	if a.ChampionCombatXP != nil {
		v := *a.ChampionCombatXP
		row.ChampionCombatXP = &v
	}
	row.FarmedCultivating = u32Ptr(a.FarmedCultivating)
	row.CompactBlocks = u32Ptr(a.CompactBlocks)
	row.HecatombSRuns = u32Ptr(a.HecatombSRuns)
	row.ExpertiseKills = u32Ptr(a.ExpertiseKills)
	row.FarmingForDummiesCount = u32Ptr(a.FarmingForDummiesCount)
	row.RaffleYear = u32Ptr(a.RaffleYear)
	row.RaffleWin = cloneStr(a.RaffleWin)
	row.DyeItem = cloneStr(a.DyeItem)

	pet, err := item.DecodePet(a.PetInfo)
	if err != nil {
		report("tag.ExtraAttributes.petInfo", err)
	} else if pet != nil {
		row.PetType = strPtr(pet.Type)
		row.PetActive = cloneBool(pet.Active)
		row.PetHeldItem = cloneStr(pet.HeldItem)
		exp := pet.Exp
		row.PetExp = &exp
		row.PetCandyUsed = u8Ptr(pet.CandyUsed)
		row.PetTier = cloneStr(pet.Tier)
		row.PetSkin = cloneStr(pet.Skin)
		row.PetUUID = cloneStr(pet.UUID)
		row.PetUniqueID = cloneStr(pet.UniqueID)
		row.PetHideRightClick = cloneBool(pet.HideRightClick)
		row.PetNoMove = cloneBool(pet.NoMove)
		row.PetHideInfo = cloneBool(pet.HideInfo)
	}

	return row, anomalies
}

func bidsJSON(bids []hypixel.Bid) datatypes.JSON {
	if bids == nil {
		bids = []hypixel.Bid{}
	}
	b, err := json.Marshal(bids)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

func strPtr(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func cloneStr(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	b := *v
	return &b
}

func cloneList(in []string) models.StringList {
	if in == nil {
		return nil
	}
	return append(models.StringList{}, in...)
}

func i32Ptr(v int32) *int32 { return &v }

func u8Ptr(v *uint8) *int16 {
	if v == nil {
		return nil
	}
	n := int16(*v)
	return &n
}

func u32Ptr(v *uint32) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
