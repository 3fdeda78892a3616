package item

import (
	"errors"
	"reflect"
	"testing"

	"auctionhouse/internal/decode"
	"auctionhouse/internal/nbt"
)

func ptr[T any](v T) *T { return &v }

func fullRecord() *Record {
	return &Record{
		ID:          276,
		Count:       1,
		Damage:      0,
		Unbreakable: ptr(true),
		HideFlags:   ptr(int32(254)),
		Display: Display{
			Name:  ptr("§dWithered Hyperion ✪✪✪✪✪"),
			Lore:  []string{"§7Damage: §c+260", "§d§lMYTHIC DUNGEON SWORD"},
			Color: ptr(int32(16711680)),
		},
		Ench: []VanillaEnchant{{ID: 16, Level: 5}},
		Attributes: Attributes{
			ID:                     "HYPERION",
			UUID:                   ptr("5b2e7a3c-1111-2222-3333-444455556666"),
			Timestamp:              &Timestamp{Millis: ptr(int64(1690000000000))},
			Modifier:               ptr("withered"),
			RarityUpgrades:         ptr(true),
			UpgradeLevel:           ptr(uint8(5)),
			HotPotatoCount:         ptr(uint8(15)),
			DungeonItemLevel:       ptr(uint8(5)),
			DungeonItem:            ptr(true),
			OriginTag:              ptr("CRAFTING_GRID"),
			Color:                  ptr("255:0:128"),
			AnvilUses:              ptr(uint32(3)),
			PeltsEarned:            ptr(uint32(12)),
			ChampionCombatXP:       ptr(3500000.25),
			FarmedCultivating:      ptr(uint32(4000000000)),
			CompactBlocks:          ptr(uint32(100)),
			HecatombSRuns:          ptr(uint32(7)),
			ExpertiseKills:         ptr(uint32(15000)),
			FarmingForDummiesCount: ptr(uint32(5)),
			RaffleYear:             ptr(uint32(200)),
			RaffleWin:              ptr("first"),
			DyeItem:                ptr("DYE_PURE_BLACK"),
			Enchantments:           map[string]uint8{"ultimate_wise": 5, "sharpness": 7, "giant_killer": 6},
			Runes:                  map[string]uint8{"MUSIC": 3},
			Gems: map[string]GemSlot{
				"unlocked_slots": UnlockedSlots{Slots: []string{"COMBAT_0", "SAPPHIRE_0"}},
				"COMBAT_0":       SimpleGem{Quality: "PERFECT"},
				"SAPPHIRE_0":     StructuredGem{UUID: "abcd", Quality: "FLAWLESS"},
			},
			PetInfo: ptr(`{"type":"ENDER_DRAGON","exp":1.0}`),
		},
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	in := fullRecord()
	blob, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	out, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch\n got=%+v\nwant=%+v", out, in)
	}
}

func TestDecodeTextTimestamp(t *testing.T) {
	in := &Record{ID: 1, Count: 64, Attributes: Attributes{
		ID:        "ENCHANTED_DIAMOND",
		Timestamp: &Timestamp{Text: ptr("3/14/21 5:07 PM")},
	}}
	blob, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	out, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	ts := out.Attributes.Timestamp
	if ts == nil || ts.Text == nil || *ts.Text != "3/14/21 5:07 PM" || ts.Millis != nil {
		t.Fatalf("timestamp=%+v", ts)
	}
	if out.Attributes.Enchantments != nil || out.Attributes.Gems != nil || out.Attributes.PetInfo != nil {
		t.Fatalf("absent fields must stay nil: %+v", out.Attributes)
	}
}

func entry(extra *nbt.Node) *nbt.Node {
	return nbt.NewCompound().
		Set("id", nbt.Short(397)).
		Set("Count", nbt.Byte(1)).
		Set("Damage", nbt.Short(3)).
		Set("tag", nbt.NewCompound().Set("ExtraAttributes", extra))
}

func wrap(entries ...*nbt.Node) *nbt.Node {
	return nbt.NewCompound().Set("i", nbt.List(nbt.KindCompound, entries...))
}

func TestDecodeEmptyWrapper(t *testing.T) {
	_, err := FromTree(wrap())
	if !errors.Is(err, decode.ErrEmptyPayload) {
		t.Fatalf("err=%v want empty payload", err)
	}
}

func TestDecodeSurplusEntries(t *testing.T) {
	first := entry(nbt.NewCompound().Set("id", nbt.String("FIRST")))
	second := entry(nbt.NewCompound().Set("id", nbt.String("SECOND")))
	blob, err := nbt.Encode(wrap(first, second))
	if err != nil {
		t.Fatalf("Encode err=%v", err)
	}
	rec, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if rec.Attributes.ID != "FIRST" {
		t.Fatalf("id=%q want FIRST", rec.Attributes.ID)
	}
	if len(rec.Anomalies) != 1 || rec.Anomalies[0].Kind != decode.KindSurplusEntries {
		t.Fatalf("anomalies=%+v", rec.Anomalies)
	}
}

func TestDecodeErrors(t *testing.T) {
	base := func() *nbt.Node { return nbt.NewCompound().Set("id", nbt.String("X")) }
	cases := []struct {
		name  string
		tree  *nbt.Node
		want  error
		field string
	}{
		{
			name:  "count above byte range",
			tree:  wrap(entry(base()).Set("Count", nbt.Int(300))),
			want:  decode.ErrOutOfRange,
			field: "Count",
		},
		{
			name:  "enchant level above range",
			tree:  wrap(entry(base().Set("enchantments", nbt.NewCompound().Set("sharpness", nbt.Int(256))))),
			want:  decode.ErrOutOfRange,
			field: "tag.ExtraAttributes.enchantments.sharpness",
		},
		{
			name:  "negative u32",
			tree:  wrap(entry(base().Set("anvil_uses", nbt.Int(-1)))),
			want:  decode.ErrOutOfRange,
			field: "tag.ExtraAttributes.anvil_uses",
		},
		{
			name:  "modifier is not a string",
			tree:  wrap(entry(base().Set("modifier", nbt.Int(3)))),
			want:  decode.ErrMalformed,
			field: "tag.ExtraAttributes.modifier",
		},
		{
			name:  "missing attributes id",
			tree:  wrap(entry(nbt.NewCompound().Set("modifier", nbt.String("fabled")))),
			want:  decode.ErrMalformed,
			field: "tag.ExtraAttributes.id",
		},
		{
			name:  "missing tag",
			tree:  wrap(nbt.NewCompound().Set("id", nbt.Short(1)).Set("Count", nbt.Byte(1)).Set("Damage", nbt.Short(0))),
			want:  decode.ErrMalformed,
			field: "tag",
		},
		{
			name:  "unrecognised gem shape",
			tree:  wrap(entry(base().Set("gems", nbt.NewCompound().Set("JADE_0", nbt.Int(4))))),
			want:  decode.ErrMalformed,
			field: "tag.ExtraAttributes.gems.JADE_0",
		},
		{
			name:  "structured gem without quality",
			tree:  wrap(entry(base().Set("gems", nbt.NewCompound().Set("JADE_0", nbt.NewCompound().Set("uuid", nbt.String("u")))))),
			want:  decode.ErrMalformed,
			field: "tag.ExtraAttributes.gems.JADE_0",
		},
		{
			name:  "wrapper without list",
			tree:  nbt.NewCompound().Set("i", nbt.String("nope")),
			want:  decode.ErrMalformed,
			field: "i",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := FromTree(tc.tree)
			if rec != nil {
				t.Fatalf("rec=%+v want nil", rec)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
			if got := decode.FieldOf(err); got != tc.field {
				t.Fatalf("field=%q want %q", got, tc.field)
			}
		})
	}
}

func TestDecodeBadBlob(t *testing.T) {
	_, err := Decode("%%%")
	if !errors.Is(err, decode.ErrEncoding) {
		t.Fatalf("err=%v want encoding", err)
	}
}

func TestDecodeUnknownFieldsIgnored(t *testing.T) {
	extra := nbt.NewCompound().
		Set("id", nbt.String("ASPECT_OF_THE_END")).
		Set("some_future_field", nbt.IntArray([]int32{1, 2})).
		Set("another", nbt.NewCompound().Set("x", nbt.Byte(1)))
	rec, err := FromTree(wrap(entry(extra)))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if rec.Attributes.ID != "ASPECT_OF_THE_END" || rec.ID != 397 || rec.Damage != 3 {
		t.Fatalf("rec=%+v", rec)
	}
}

func TestDecodeRejectsNegativeUnsignedFields(t *testing.T) {
	cases := []struct {
		field string
		node  *nbt.Node
	}{
		{"id", nbt.Short(-1)},
		{"Count", nbt.Byte(-1)},
		{"Damage", nbt.Short(-2)},
	}
	for _, tc := range cases {
		e := entry(nbt.NewCompound().Set("id", nbt.String("X"))).Set(tc.field, tc.node)
		rec, err := FromTree(wrap(e))
		if rec != nil {
			t.Fatalf("%s: rec=%+v want nil", tc.field, rec)
		}
		if !errors.Is(err, decode.ErrOutOfRange) {
			t.Fatalf("%s: err=%v want out of range", tc.field, err)
		}
		var de *decode.Error
		if !errors.As(err, &de) || de.Field != tc.field {
			t.Fatalf("%s: err=%#v", tc.field, err)
		}
	}
}

func TestClassifyGemShapes(t *testing.T) {
	gems := nbt.NewCompound().
		Set("unlocked_slots", nbt.StringList([]string{"JADE_0"})).
		Set("JADE_0", nbt.String("FINE")).
		Set("AMBER_0", nbt.NewCompound().Set("uuid", nbt.String("u-1")).Set("quality", nbt.String("FLAWED")))
	rec, err := FromTree(wrap(entry(nbt.NewCompound().Set("id", nbt.String("DIVAN_DRILL")).Set("gems", gems))))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	g := rec.Attributes.Gems
	if _, ok := g["unlocked_slots"].(UnlockedSlots); !ok {
		t.Fatalf("unlocked_slots=%T", g["unlocked_slots"])
	}
	if v, ok := g["JADE_0"].(SimpleGem); !ok || v.Quality != "FINE" {
		t.Fatalf("JADE_0=%#v", g["JADE_0"])
	}
	if v, ok := g["AMBER_0"].(StructuredGem); !ok || v.UUID != "u-1" || v.Quality != "FLAWED" {
		t.Fatalf("AMBER_0=%#v", g["AMBER_0"])
	}
}
