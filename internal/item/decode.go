package item

import (
	"fmt"
	"math"

	"auctionhouse/internal/decode"
	"auctionhouse/internal/nbt"
)

// Decode turns an item payload blob into a Record. Failures are
// *decode.Error values; a payload with more than one entry decodes the
// first and reports the rest as a surplus anomaly.
func Decode(blob string) (*Record, error) {
	root, err := nbt.Decode(blob)
	if err != nil {
		return nil, err
	}
	return FromTree(root)
}

// FromTree maps an already parsed tree onto a Record.
func FromTree(root *nbt.Node) (*Record, error) {
	if root == nil || root.Kind != nbt.KindCompound {
		return nil, decode.Errorf(decode.KindMalformed, "", "root is not a compound")
	}
	list, ok := root.Field("i")
	if !ok {
		return nil, decode.Errorf(decode.KindMalformed, "i", "missing item list")
	}
	if list.Kind != nbt.KindList {
		return nil, mismatch("i", list, "list")
	}
	if list.Len() == 0 {
		return nil, decode.Errorf(decode.KindEmptyPayload, "i", "item list is empty")
	}
	if list.ElemKind() != nbt.KindCompound {
		return nil, decode.Errorf(decode.KindMalformed, "i", "got list of %s, want list of compound", list.ElemKind())
	}

	rec, err := decodeEntry(list.Elems()[0])
	if err != nil {
		return nil, err
	}
	if n := list.Len(); n > 1 {
		rec.Anomalies = append(rec.Anomalies, decode.Anomaly{
			Kind:    decode.KindSurplusEntries,
			Field:   "i",
			Message: fmt.Sprintf("payload holds %d entries, decoded the first", n),
		})
	}
	return rec, nil
}

func required(parent *nbt.Node, path, name string) (*nbt.Node, error) {
	n, ok := parent.Field(name)
	if !ok {
		return nil, decode.Errorf(decode.KindMalformed, join(path, name), "required field missing")
	}
	return n, nil
}

func decodeEntry(entry *nbt.Node) (*Record, error) {
	rec := &Record{}

	idNode, err := required(entry, "", "id")
	if err != nil {
		return nil, err
	}
	id, err := asIntRange(idNode, "id", 0, math.MaxUint16)
	if err != nil {
		return nil, err
	}
	rec.ID = uint16(id)

	countNode, err := required(entry, "", "Count")
	if err != nil {
		return nil, err
	}
	count, err := asU8(countNode, "Count")
	if err != nil {
		return nil, err
	}
	rec.Count = count

	damageNode, err := required(entry, "", "Damage")
	if err != nil {
		return nil, err
	}
	damage, err := asIntRange(damageNode, "Damage", 0, math.MaxUint16)
	if err != nil {
		return nil, err
	}
	rec.Damage = uint16(damage)

	tag, err := required(entry, "", "tag")
	if err != nil {
		return nil, err
	}
	if tag.Kind != nbt.KindCompound {
		return nil, mismatch("tag", tag, "compound")
	}
	if err := decodeTag(rec, tag); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeTag(rec *Record, tag *nbt.Node) error {
	if n, ok := tag.Field("Unbreakable"); ok {
		v, err := asBool(n, "tag.Unbreakable")
		if err != nil {
			return err
		}
		rec.Unbreakable = &v
	}
	if n, ok := tag.Field("HideFlags"); ok {
		v, err := asInt32(n, "tag.HideFlags")
		if err != nil {
			return err
		}
		rec.HideFlags = &v
	}
	if n, ok := tag.Field("display"); ok {
		if err := decodeDisplay(&rec.Display, n); err != nil {
			return err
		}
	}
	if n, ok := tag.Field("ench"); ok {
		ench, err := decodeEnch(n)
		if err != nil {
			return err
		}
		rec.Ench = ench
	}

	extra, err := required(tag, "tag", "ExtraAttributes")
	if err != nil {
		return err
	}
	return decodeAttributes(&rec.Attributes, extra)
}

func decodeDisplay(d *Display, n *nbt.Node) error {
	const path = "tag.display"
	if n.Kind != nbt.KindCompound {
		return mismatch(path, n, "compound")
	}
	if c, ok := n.Field("Name"); ok {
		s, err := asString(c, join(path, "Name"))
		if err != nil {
			return err
		}
		d.Name = &s
	}
	if c, ok := n.Field("Lore"); ok {
		lore, err := asStrings(c, join(path, "Lore"))
		if err != nil {
			return err
		}
		d.Lore = lore
	}
	if c, ok := n.Field("color"); ok {
		v, err := asInt32(c, join(path, "color"))
		if err != nil {
			return err
		}
		d.Color = &v
	}
	return nil
}

func decodeEnch(n *nbt.Node) ([]VanillaEnchant, error) {
	const path = "tag.ench"
	if n.Kind != nbt.KindList {
		return nil, mismatch(path, n, "list")
	}
	out := make([]VanillaEnchant, 0, n.Len())
	for i, e := range n.Elems() {
		ep := fmt.Sprintf("%s[%d]", path, i)
		if e.Kind != nbt.KindCompound {
			return nil, mismatch(ep, e, "compound")
		}
		idNode, err := required(e, ep, "id")
		if err != nil {
			return nil, err
		}
		lvlNode, err := required(e, ep, "lvl")
		if err != nil {
			return nil, err
		}
		id, err := asInt16(idNode, join(ep, "id"))
		if err != nil {
			return nil, err
		}
		lvl, err := asInt16(lvlNode, join(ep, "lvl"))
		if err != nil {
			return nil, err
		}
		out = append(out, VanillaEnchant{ID: id, Level: lvl})
	}
	return out, nil
}

func decodeAttributes(a *Attributes, n *nbt.Node) error {
	const path = "tag.ExtraAttributes"
	if n.Kind != nbt.KindCompound {
		return mismatch(path, n, "compound")
	}
	idNode, err := required(n, path, "id")
	if err != nil {
		return err
	}
	if a.ID, err = asString(idNode, join(path, "id")); err != nil {
		return err
	}
	for _, f := range attributeFields {
		c, ok := n.Field(f.name)
		if !ok {
			continue
		}
		if err := f.set(a, join(path, f.name), c); err != nil {
			return err
		}
	}
	return nil
}
