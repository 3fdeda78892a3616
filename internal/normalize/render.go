package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"auctionhouse/internal/decode"
	"auctionhouse/internal/item"
	"auctionhouse/internal/models"
)

const (
	colorField     = "tag.ExtraAttributes.color"
	timestampField = "tag.ExtraAttributes.timestamp"
	gemsField      = "tag.ExtraAttributes.gems"

	// ItemTimestampLayout is the legacy text form of item creation time.
	ItemTimestampLayout = "1/2/06 3:04 PM"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderLevels renders name/level pairs as "<name> <level>" lines sorted
// by name. A nil map renders as nil.
func RenderLevels(m map[string]uint8) models.StringList {
	if m == nil {
		return nil
	}
	out := make(models.StringList, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, k+" "+strconv.Itoa(int(m[k])))
	}
	return out
}

// PartitionGems splits the gem bag into the unlocked slot list and the
// slotted gem lines. Only the first unlocked-slots entry in key order is
// used; later ones are reported.
//
// A simple slotted gem renders as its bare quality ("FINE"), which is the
// form existing rows already carry; the slot key appears only on
// structured gems ("AMBER_0 FLAWED").
func PartitionGems(gems map[string]item.GemSlot) (unlocked, slotted models.StringList, anomalies []decode.Anomaly) {
	if gems == nil {
		return nil, nil, nil
	}
	slotted = make(models.StringList, 0, len(gems))
	seenUnlocked := false
	for _, k := range sortedKeys(gems) {
		switch g := gems[k].(type) {
		case item.UnlockedSlots:
			if seenUnlocked {
				anomalies = append(anomalies, decode.Anomaly{
					Kind:    decode.KindMalformed,
					Field:   gemsField + "." + k,
					Message: "additional unlocked slot list ignored",
				})
				continue
			}
			seenUnlocked = true
			unlocked = append(models.StringList{}, g.Slots...)
		case item.SimpleGem:
			slotted = append(slotted, g.Quality)
		case item.StructuredGem:
			slotted = append(slotted, k+" "+g.Quality)
		}
	}
	return unlocked, slotted, anomalies
}

// ParseColor splits an "R:G:B" string into three channels in [0, 255].
func ParseColor(raw string) (r, g, b int16, err error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, 0, 0, decode.Errorf(decode.KindMalformed, colorField, "%q: want 3 channels, got %d", raw, len(parts))
	}
	var ch [3]int16
	for i, p := range parts {
		v, perr := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if perr != nil {
			kind := decode.KindMalformed
			if errors.Is(perr, strconv.ErrRange) {
				kind = decode.KindOutOfRange
			}
			return 0, 0, 0, decode.New(kind, colorField, fmt.Errorf("%q channel %d: %w", raw, i, perr))
		}
		ch[i] = int16(v)
	}
	return ch[0], ch[1], ch[2], nil
}

// ParseItemTimestamp resolves the creation timestamp union to UTC time.
func ParseItemTimestamp(ts *item.Timestamp) (*time.Time, error) {
	switch {
	case ts == nil:
		return nil, nil
	case ts.Millis != nil:
		t := time.UnixMilli(*ts.Millis).UTC()
		return &t, nil
	case ts.Text != nil:
		t, err := time.Parse(ItemTimestampLayout, strings.TrimSpace(*ts.Text))
		if err != nil {
			return nil, decode.New(decode.KindMalformed, timestampField, err)
		}
		t = t.UTC()
		return &t, nil
	}
	return nil, nil
}
