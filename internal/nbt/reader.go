package nbt

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	mcnbt "github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"auctionhouse/internal/decode"
)

// MaxInflated bounds the decompressed size of a single payload.
const MaxInflated = 4 << 20

// Decode runs the full layered decode: base64 text, then the compression
// envelope, then the tag stream. It either returns a complete tree or a
// *decode.Error; partial trees are never returned.
func Decode(blob string) (*Node, error) {
	raw, err := decodeBase64(blob)
	if err != nil {
		return nil, err
	}
	data, err := Inflate(raw)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func decodeBase64(blob string) ([]byte, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, decode.Errorf(decode.KindEncoding, "", "empty payload text")
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err == nil {
		return raw, nil
	}
	// Some producers drop the padding.
	if raw2, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(blob, "=")); err2 == nil {
		return raw2, nil
	}
	return nil, decode.New(decode.KindEncoding, "", fmt.Errorf("base64: %w", err))
}

// Inflate removes the compression envelope. gzip and zlib are detected by
// their magic bytes; anything else is treated as a raw DEFLATE stream.
func Inflate(raw []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch {
	case len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b:
		r, err = gzip.NewReader(bytes.NewReader(raw))
	case len(raw) >= 2 && raw[0]&0x0f == 0x08 && (uint16(raw[0])<<8|uint16(raw[1]))%31 == 0:
		r, err = zlib.NewReader(bytes.NewReader(raw))
	default:
		r = flate.NewReader(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, decode.New(decode.KindEncoding, "", fmt.Errorf("decompress: %w", err))
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, MaxInflated+1))
	if err != nil {
		return nil, decode.New(decode.KindEncoding, "", fmt.Errorf("decompress: %w", err))
	}
	if len(data) > MaxInflated {
		return nil, decode.Errorf(decode.KindEncoding, "", "decompressed payload exceeds %d bytes", MaxInflated)
	}
	if len(data) == 0 {
		return nil, decode.Errorf(decode.KindEncoding, "", "decompressed payload is empty")
	}
	return data, nil
}

// Parse reads one named root tag from an uncompressed tag stream.
func Parse(data []byte) (root *Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			root = nil
			err = decode.Errorf(decode.KindMalformed, "", "tag stream: %v", r)
		}
	}()

	if err := validate(data); err != nil {
		return nil, decode.New(decode.KindMalformed, "", fmt.Errorf("tag stream: %w", err))
	}

	var v any
	if _, err := mcnbt.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, decode.New(decode.KindMalformed, "", fmt.Errorf("tag stream: %w", err))
	}
	root, err = fromValue(v)
	if err != nil {
		return nil, decode.New(decode.KindMalformed, "", err)
	}
	return root, nil
}

var errUnsupported = errors.New("unsupported tag value")

// fromValue converts the generic value produced by the tag decoder into a
// Node. Integer widths map one to one onto tag kinds.
func fromValue(v any) (*Node, error) {
	switch x := v.(type) {
	case nil:
		return nil, errUnsupported
	case *Node:
		return x, nil
	case string:
		return String(x), nil
	case []byte:
		return ByteArray(x), nil
	case map[string]any:
		n := NewCompound()
		for k, e := range x {
			child, err := fromValue(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			n.fields[k] = child
		}
		return n, nil
	case []any:
		return listFromValues(len(x), func(i int) any { return x[i] })
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int8:
		return Byte(int8(rv.Int())), nil
	case reflect.Uint8:
		return Byte(int8(rv.Uint())), nil
	case reflect.Int16:
		return Short(int16(rv.Int())), nil
	case reflect.Uint16:
		return Short(int16(rv.Uint())), nil
	case reflect.Int32:
		return Int(int32(rv.Int())), nil
	case reflect.Uint32:
		return Int(int32(rv.Uint())), nil
	case reflect.Int64, reflect.Int:
		return Long(rv.Int()), nil
	case reflect.Uint64, reflect.Uint:
		return Long(int64(rv.Uint())), nil
	case reflect.Float32:
		return Float(float32(rv.Float())), nil
	case reflect.Float64:
		return Double(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errUnsupported
		}
		n := NewCompound()
		iter := rv.MapRange()
		for iter.Next() {
			child, err := fromValue(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iter.Key().String(), err)
			}
			n.fields[iter.Key().String()] = child
		}
		return n, nil
	case reflect.Slice, reflect.Array:
		switch rv.Type().Elem().Kind() {
		case reflect.Int8, reflect.Uint8:
			out := make([]byte, rv.Len())
			for i := range out {
				e := rv.Index(i)
				if e.Kind() == reflect.Int8 {
					out[i] = byte(e.Int())
				} else {
					out[i] = byte(e.Uint())
				}
			}
			return ByteArray(out), nil
		case reflect.Int32:
			out := make([]int32, rv.Len())
			for i := range out {
				out[i] = int32(rv.Index(i).Int())
			}
			return IntArray(out), nil
		case reflect.Int64:
			out := make([]int64, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).Int()
			}
			return LongArray(out), nil
		}
		return listFromValues(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}
	return nil, fmt.Errorf("%w: %T", errUnsupported, v)
}

func listFromValues(n int, at func(int) any) (*Node, error) {
	if n == 0 {
		return List(KindEnd), nil
	}
	elems := make([]*Node, 0, n)
	var elem Kind
	for i := 0; i < n; i++ {
		child, err := fromValue(at(i))
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if i == 0 {
			elem = child.Kind
		} else if child.Kind != elem {
			return nil, fmt.Errorf("[%d]: list mixes %s and %s", i, elem, child.Kind)
		}
		elems = append(elems, child)
	}
	return List(elem, elems...), nil
}

// Dump renders a tree as indented text for diagnostics.
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n *Node, depth int) {
	pad := strings.Repeat("  ", depth)
	if n == nil {
		b.WriteString(pad + "<nil>\n")
		return
	}
	switch n.Kind {
	case KindCompound:
		b.WriteString(pad + "{\n")
		keys := make([]string, 0, len(n.fields))
		for k := range n.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(pad + "  " + k + ":\n")
			dump(b, n.fields[k], depth+2)
		}
		b.WriteString(pad + "}\n")
	case KindList:
		fmt.Fprintf(b, "%s[%s x%d]\n", pad, n.elem, len(n.elems))
		for _, e := range n.elems {
			dump(b, e, depth+1)
		}
	case KindString:
		fmt.Fprintf(b, "%s%q\n", pad, n.str)
	case KindFloat, KindDouble:
		fmt.Fprintf(b, "%s%v (%s)\n", pad, n.flt, n.Kind)
	case KindByteArray, KindIntArray, KindLongArray:
		fmt.Fprintf(b, "%s%s x%d\n", pad, n.Kind, n.Len())
	default:
		fmt.Fprintf(b, "%s%d (%s)\n", pad, n.num, n.Kind)
	}
}
