package item

import (
	"fmt"
	"math"

	"auctionhouse/internal/decode"
	"auctionhouse/internal/nbt"
)

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func mismatch(path string, n *nbt.Node, want string) error {
	return decode.Errorf(decode.KindMalformed, path, "got %s, want %s", n.Kind, want)
}

func asString(n *nbt.Node, path string) (string, error) {
	s, ok := n.Str()
	if !ok {
		return "", mismatch(path, n, "string")
	}
	return s, nil
}

func asInt(n *nbt.Node, path string) (int64, error) {
	v, ok := n.Int()
	if !ok {
		return 0, mismatch(path, n, "integer")
	}
	return v, nil
}

func asIntRange(n *nbt.Node, path string, lo, hi int64) (int64, error) {
	v, err := asInt(n, path)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, decode.Errorf(decode.KindOutOfRange, path, "%d outside [%d, %d]", v, lo, hi)
	}
	return v, nil
}

func asU8(n *nbt.Node, path string) (uint8, error) {
	v, err := asIntRange(n, path, 0, math.MaxUint8)
	return uint8(v), err
}

func asU32(n *nbt.Node, path string) (uint32, error) {
	v, err := asIntRange(n, path, 0, math.MaxUint32)
	return uint32(v), err
}

func asInt32(n *nbt.Node, path string) (int32, error) {
	v, err := asIntRange(n, path, math.MinInt32, math.MaxInt32)
	return int32(v), err
}

func asInt16(n *nbt.Node, path string) (int16, error) {
	v, err := asIntRange(n, path, math.MinInt16, math.MaxInt16)
	return int16(v), err
}

// asBool accepts any integer tag; zero is false.
func asBool(n *nbt.Node, path string) (bool, error) {
	v, err := asInt(n, path)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func asFloat(n *nbt.Node, path string) (float64, error) {
	v, ok := n.Float()
	if !ok {
		return 0, mismatch(path, n, "number")
	}
	return v, nil
}

func asStrings(n *nbt.Node, path string) ([]string, error) {
	if n.Kind != nbt.KindList {
		return nil, mismatch(path, n, "list")
	}
	out := make([]string, 0, n.Len())
	for i, e := range n.Elems() {
		s, err := asString(e, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func asLevels(n *nbt.Node, path string) (map[string]uint8, error) {
	if n.Kind != nbt.KindCompound {
		return nil, mismatch(path, n, "compound")
	}
	out := make(map[string]uint8, n.Len())
	for _, k := range n.Keys() {
		c, _ := n.Field(k)
		v, err := asU8(c, join(path, k))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func boolNode(v bool) *nbt.Node { return nbt.Bool(v) }

// intBoolNode writes flags that the game stores as int tags.
func intBoolNode(v bool) *nbt.Node {
	if v {
		return nbt.Int(1)
	}
	return nbt.Int(0)
}

func u8Node(v uint8) *nbt.Node { return nbt.Int(int32(v)) }

func u32Node(v uint32) *nbt.Node {
	if v > math.MaxInt32 {
		return nbt.Long(int64(v))
	}
	return nbt.Int(int32(v))
}

func levelsNode(m map[string]uint8) *nbt.Node {
	n := nbt.NewCompound()
	for k, v := range m {
		n.Set(k, u8Node(v))
	}
	return n
}

// attrField maps one ExtraAttributes key in both directions. Decode and
// Encode share the table so the two can not drift apart.
type attrField struct {
	name string
	get  func(*Attributes) *nbt.Node
	set  func(a *Attributes, path string, n *nbt.Node) error
}

func scalar[T any](name string, ptr func(*Attributes) **T, enc func(T) *nbt.Node, dec func(*nbt.Node, string) (T, error)) attrField {
	return attrField{
		name: name,
		get: func(a *Attributes) *nbt.Node {
			if p := *ptr(a); p != nil {
				return enc(*p)
			}
			return nil
		},
		set: func(a *Attributes, path string, n *nbt.Node) error {
			v, err := dec(n, path)
			if err != nil {
				return err
			}
			*ptr(a) = &v
			return nil
		},
	}
}

var attributeFields = []attrField{
	scalar("uuid", func(a *Attributes) **string { return &a.UUID }, nbt.String, asString),
	scalar("modifier", func(a *Attributes) **string { return &a.Modifier }, nbt.String, asString),
	scalar("rarity_upgrades", func(a *Attributes) **bool { return &a.RarityUpgrades }, intBoolNode, asBool),
	scalar("upgrade_level", func(a *Attributes) **uint8 { return &a.UpgradeLevel }, u8Node, asU8),
	scalar("hot_potato_count", func(a *Attributes) **uint8 { return &a.HotPotatoCount }, u8Node, asU8),
	scalar("dungeon_item_level", func(a *Attributes) **uint8 { return &a.DungeonItemLevel }, u8Node, asU8),
	scalar("dungeon_item", func(a *Attributes) **bool { return &a.DungeonItem }, boolNode, asBool),
	scalar("originTag", func(a *Attributes) **string { return &a.OriginTag }, nbt.String, asString),
	scalar("color", func(a *Attributes) **string { return &a.Color }, nbt.String, asString),
	scalar("anvil_uses", func(a *Attributes) **uint32 { return &a.AnvilUses }, u32Node, asU32),
	scalar("pelts_earned", func(a *Attributes) **uint32 { return &a.PeltsEarned }, u32Node, asU32),
	scalar("champion_combat_xp", func(a *Attributes) **float64 { return &a.ChampionCombatXP }, nbt.Double, asFloat),
	scalar("farmed_cultivating", func(a *Attributes) **uint32 { return &a.FarmedCultivating }, u32Node, asU32),
	scalar("compact_blocks", func(a *Attributes) **uint32 { return &a.CompactBlocks }, u32Node, asU32),
	scalar("hecatomb_s_runs", func(a *Attributes) **uint32 { return &a.HecatombSRuns }, u32Node, asU32),
	scalar("expertise_kills", func(a *Attributes) **uint32 { return &a.ExpertiseKills }, u32Node, asU32),
	scalar("farming_for_dummies_count", func(a *Attributes) **uint32 { return &a.FarmingForDummiesCount }, u32Node, asU32),
	scalar("raffle_year", func(a *Attributes) **uint32 { return &a.RaffleYear }, u32Node, asU32),
	scalar("raffle_win", func(a *Attributes) **string { return &a.RaffleWin }, nbt.String, asString),
	scalar("dye_item", func(a *Attributes) **string { return &a.DyeItem }, nbt.String, asString),
	scalar("petInfo", func(a *Attributes) **string { return &a.PetInfo }, nbt.String, asString),
	{
		name: "timestamp",
		get: func(a *Attributes) *nbt.Node {
			switch {
			case a.Timestamp == nil:
				return nil
			case a.Timestamp.Millis != nil:
				return nbt.Long(*a.Timestamp.Millis)
			case a.Timestamp.Text != nil:
				return nbt.String(*a.Timestamp.Text)
			}
			return nil
		},
		set: func(a *Attributes, path string, n *nbt.Node) error {
			if v, ok := n.Int(); ok {
				a.Timestamp = &Timestamp{Millis: &v}
				return nil
			}
			if s, ok := n.Str(); ok {
				a.Timestamp = &Timestamp{Text: &s}
				return nil
			}
			return mismatch(path, n, "long or string")
		},
	},
	{
		name: "enchantments",
		get: func(a *Attributes) *nbt.Node {
			if a.Enchantments == nil {
				return nil
			}
			return levelsNode(a.Enchantments)
		},
		set: func(a *Attributes, path string, n *nbt.Node) (err error) {
			a.Enchantments, err = asLevels(n, path)
			return err
		},
	},
	{
		name: "runes",
		get: func(a *Attributes) *nbt.Node {
			if a.Runes == nil {
				return nil
			}
			return levelsNode(a.Runes)
		},
		set: func(a *Attributes, path string, n *nbt.Node) (err error) {
			a.Runes, err = asLevels(n, path)
			return err
		},
	},
	{
		name: "gems",
		get: func(a *Attributes) *nbt.Node {
			if a.Gems == nil {
				return nil
			}
			n := nbt.NewCompound()
			for k, g := range a.Gems {
				n.Set(k, gemNode(g))
			}
			return n
		},
		set: func(a *Attributes, path string, n *nbt.Node) error {
			if n.Kind != nbt.KindCompound {
				return mismatch(path, n, "compound")
			}
			gems := make(map[string]GemSlot, n.Len())
			for _, k := range n.Keys() {
				c, _ := n.Field(k)
				g, err := classifyGem(join(path, k), c)
				if err != nil {
					return err
				}
				gems[k] = g
			}
			a.Gems = gems
			return nil
		},
	},
}
