package nbt

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	mcnbt "github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
)

// Encode is the inverse of Decode: tag stream, gzip, base64.
func Encode(root *Node) (string, error) {
	if root == nil || root.Kind != KindCompound {
		return "", fmt.Errorf("nbt: root must be a compound")
	}
	var raw bytes.Buffer
	if err := root.writeRoot(&raw); err != nil {
		return "", err
	}

	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return "", fmt.Errorf("nbt: gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("nbt: gzip: %w", err)
	}
	return base64.StdEncoding.EncodeToString(zipped.Bytes()), nil
}

// writeRoot writes n as an unnamed root tag, uncompressed.
func (n *Node) writeRoot(w io.Writer) error {
	if err := mcnbt.NewEncoder(w).Encode(n, ""); err != nil {
		return fmt.Errorf("nbt: encode: %w", err)
	}
	return nil
}

// TagType reports the tag id so the tag encoder writes the right header.
func (n *Node) TagType() byte {
	return byte(n.Kind)
}

// MarshalNBT writes the payload of n, without its header.
func (n *Node) MarshalNBT(w io.Writer) error {
	switch n.Kind {
	case KindByte:
		return write(w, int8(n.num))
	case KindShort:
		return write(w, int16(n.num))
	case KindInt:
		return write(w, int32(n.num))
	case KindLong:
		return write(w, n.num)
	case KindFloat:
		return write(w, math.Float32bits(float32(n.flt)))
	case KindDouble:
		return write(w, math.Float64bits(n.flt))
	case KindByteArray:
		if err := write(w, int32(len(n.bytes))); err != nil {
			return err
		}
		_, err := w.Write(n.bytes)
		return err
	case KindString:
		return writeString(w, n.str)
	case KindList:
		elem := n.elem
		if len(n.elems) == 0 {
			elem = KindEnd
		}
		if err := write(w, byte(elem)); err != nil {
			return err
		}
		if err := write(w, int32(len(n.elems))); err != nil {
			return err
		}
		for i, e := range n.elems {
			if e.Kind != elem {
				return fmt.Errorf("nbt: list element %d is %s, want %s", i, e.Kind, elem)
			}
			if err := e.MarshalNBT(w); err != nil {
				return err
			}
		}
		return nil
	case KindCompound:
		for _, k := range n.Keys() {
			child := n.fields[k]
			if err := write(w, byte(child.Kind)); err != nil {
				return err
			}
			if err := writeString(w, k); err != nil {
				return err
			}
			if err := child.MarshalNBT(w); err != nil {
				return err
			}
		}
		return write(w, byte(KindEnd))
	case KindIntArray:
		if err := write(w, int32(len(n.ints))); err != nil {
			return err
		}
		return write(w, n.ints)
	case KindLongArray:
		if err := write(w, int32(len(n.longs))); err != nil {
			return err
		}
		return write(w, n.longs)
	}
	return fmt.Errorf("nbt: cannot encode %s", n.Kind)
}

func write(w io.Writer, v any) error {
	return binary.Write(w, binary.BigEndian, v)
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes too long", len(s))
	}
	if err := write(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}
