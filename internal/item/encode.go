package item

import (
	"fmt"

	"auctionhouse/internal/nbt"
)

// Encode writes rec back into payload form through the same field mapping
// Decode uses. Anomalies are not encoded.
func Encode(rec *Record) (string, error) {
	root, err := ToTree(rec)
	if err != nil {
		return "", err
	}
	return nbt.Encode(root)
}

func ToTree(rec *Record) (*nbt.Node, error) {
	if rec == nil {
		return nil, fmt.Errorf("item: nil record")
	}
	if rec.Attributes.ID == "" {
		return nil, fmt.Errorf("item: attributes id is required")
	}

	tag := nbt.NewCompound()
	if rec.Unbreakable != nil {
		tag.Set("Unbreakable", nbt.Bool(*rec.Unbreakable))
	}
	if rec.HideFlags != nil {
		tag.Set("HideFlags", nbt.Int(*rec.HideFlags))
	}
	if d := displayNode(rec.Display); d != nil {
		tag.Set("display", d)
	}
	if rec.Ench != nil {
		elems := make([]*nbt.Node, 0, len(rec.Ench))
		for _, e := range rec.Ench {
			elems = append(elems, nbt.NewCompound().
				Set("id", nbt.Short(e.ID)).
				Set("lvl", nbt.Short(e.Level)))
		}
		tag.Set("ench", nbt.List(nbt.KindCompound, elems...))
	}

	extra := nbt.NewCompound().Set("id", nbt.String(rec.Attributes.ID))
	for _, f := range attributeFields {
		extra.Set(f.name, f.get(&rec.Attributes))
	}
	tag.Set("ExtraAttributes", extra)

	entry := nbt.NewCompound().
		Set("id", nbt.Short(int16(rec.ID))).
		Set("Count", nbt.Byte(int8(rec.Count))).
		Set("Damage", nbt.Short(int16(rec.Damage))).
		Set("tag", tag)
	return nbt.NewCompound().Set("i", nbt.List(nbt.KindCompound, entry)), nil
}

func displayNode(d Display) *nbt.Node {
	if d.Name == nil && d.Lore == nil && d.Color == nil {
		return nil
	}
	n := nbt.NewCompound()
	if d.Name != nil {
		n.Set("Name", nbt.String(*d.Name))
	}
	if d.Lore != nil {
		n.Set("Lore", nbt.StringList(d.Lore))
	}
	if d.Color != nil {
		n.Set("color", nbt.Int(*d.Color))
	}
	return n
}
