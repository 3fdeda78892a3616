package item

import (
	"auctionhouse/internal/decode"
	"auctionhouse/internal/nbt"
)

// GemSlot is one entry of the gems bag. The set of variants is closed:
// UnlockedSlots, SimpleGem and StructuredGem.
type GemSlot interface {
	gemSlot()
}

// UnlockedSlots lists the slot types unlocked on the item.
type UnlockedSlots struct {
	Slots []string
}

// SimpleGem is a slotted gem stored as its bare quality string.
type SimpleGem struct {
	Quality string
}

// StructuredGem is a slotted gem stored with its own uuid.
type StructuredGem struct {
	UUID    string
	Quality string
}

func (UnlockedSlots) gemSlot() {}
func (SimpleGem) gemSlot()     {}
func (StructuredGem) gemSlot() {}

// classifyGem picks the variant from the raw tag shape alone.
func classifyGem(field string, n *nbt.Node) (GemSlot, error) {
	switch n.Kind {
	case nbt.KindList:
		slots := make([]string, 0, n.Len())
		for _, e := range n.Elems() {
			s, ok := e.Str()
			if !ok {
				return nil, decode.Errorf(decode.KindMalformed, field, "unlocked slot is %s, want string", e.Kind)
			}
			slots = append(slots, s)
		}
		return UnlockedSlots{Slots: slots}, nil
	case nbt.KindString:
		s, _ := n.Str()
		return SimpleGem{Quality: s}, nil
	case nbt.KindCompound:
		u, okU := n.Field("uuid")
		q, okQ := n.Field("quality")
		if !okU || !okQ {
			return nil, decode.Errorf(decode.KindMalformed, field, "structured gem needs uuid and quality")
		}
		us, okU := u.Str()
		qs, okQ := q.Str()
		if !okU || !okQ {
			return nil, decode.Errorf(decode.KindMalformed, field, "structured gem uuid/quality must be strings")
		}
		return StructuredGem{UUID: us, Quality: qs}, nil
	}
	return nil, decode.Errorf(decode.KindMalformed, field, "unrecognised gem shape %s", n.Kind)
}

func gemNode(g GemSlot) *nbt.Node {
	switch v := g.(type) {
	case UnlockedSlots:
		return nbt.StringList(v.Slots)
	case SimpleGem:
		return nbt.String(v.Quality)
	case StructuredGem:
		return nbt.NewCompound().
			Set("uuid", nbt.String(v.UUID)).
			Set("quality", nbt.String(v.Quality))
	}
	return nil
}
