// Package nbt reads and writes the compressed binary tag trees that carry
// item payloads. A tree is a hierarchy of Nodes; every Node knows its tag
// kind so callers can tell a short from a string without guessing.
package nbt

import (
	"sort"
)

type Kind byte

const (
	KindEnd Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByteArray
	KindString
	KindList
	KindCompound
	KindIntArray
	KindLongArray
)

var kindNames = [...]string{
	"end", "byte", "short", "int", "long", "float", "double",
	"byte_array", "string", "list", "compound", "int_array", "long_array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) IsInteger() bool {
	return k == KindByte || k == KindShort || k == KindInt || k == KindLong
}

func (k Kind) IsFloat() bool {
	return k == KindFloat || k == KindDouble
}

type Node struct {
	Kind Kind

	num    int64
	flt    float64
	str    string
	bytes  []byte
	ints   []int32
	longs  []int64
	elem   Kind
	elems  []*Node
	fields map[string]*Node
}

func Byte(v int8) *Node      { return &Node{Kind: KindByte, num: int64(v)} }
func Short(v int16) *Node    { return &Node{Kind: KindShort, num: int64(v)} }
func Int(v int32) *Node      { return &Node{Kind: KindInt, num: int64(v)} }
func Long(v int64) *Node     { return &Node{Kind: KindLong, num: v} }
func Float(v float32) *Node  { return &Node{Kind: KindFloat, flt: float64(v)} }
func Double(v float64) *Node { return &Node{Kind: KindDouble, flt: v} }
func String(v string) *Node  { return &Node{Kind: KindString, str: v} }

func Bool(v bool) *Node {
	if v {
		return Byte(1)
	}
	return Byte(0)
}

func ByteArray(v []byte) *Node  { return &Node{Kind: KindByteArray, bytes: v} }
func IntArray(v []int32) *Node  { return &Node{Kind: KindIntArray, ints: v} }
func LongArray(v []int64) *Node { return &Node{Kind: KindLongArray, longs: v} }
func NewCompound() *Node        { return &Node{Kind: KindCompound, fields: map[string]*Node{}} }

func List(elem Kind, elems ...*Node) *Node {
	if len(elems) == 0 {
		elem = KindEnd
	}
	return &Node{Kind: KindList, elem: elem, elems: elems}
}

// StringList builds a list of string tags.
func StringList(values []string) *Node {
	elems := make([]*Node, 0, len(values))
	for _, v := range values {
		elems = append(elems, String(v))
	}
	return List(KindString, elems...)
}

// Set adds or replaces a child of a compound. Nil children are ignored so
// optional fields can be set unconditionally.
func (n *Node) Set(name string, child *Node) *Node {
	if n == nil || n.Kind != KindCompound || child == nil {
		return n
	}
	if n.fields == nil {
		n.fields = map[string]*Node{}
	}
	n.fields[name] = child
	return n
}

func (n *Node) Field(name string) (*Node, bool) {
	if n == nil || n.Kind != KindCompound {
		return nil, false
	}
	c, ok := n.fields[name]
	return c, ok
}

// Keys returns compound field names in lexicographic order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != KindCompound {
		return nil
	}
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindList:
		return len(n.elems)
	case KindCompound:
		return len(n.fields)
	case KindByteArray:
		return len(n.bytes)
	case KindIntArray:
		return len(n.ints)
	case KindLongArray:
		return len(n.longs)
	}
	return 0
}

func (n *Node) Elems() []*Node {
	if n == nil || n.Kind != KindList {
		return nil
	}
	return n.elems
}

func (n *Node) ElemKind() Kind {
	if n == nil || n.Kind != KindList {
		return KindEnd
	}
	return n.elem
}

// Int returns the value of any integer tag.
func (n *Node) Int() (int64, bool) {
	if n == nil || !n.Kind.IsInteger() {
		return 0, false
	}
	return n.num, true
}

// Float returns the value of a float or double tag. Integer tags are
// widened as well.
func (n *Node) Float() (float64, bool) {
	if n == nil {
		return 0, false
	}
	if n.Kind.IsFloat() {
		return n.flt, true
	}
	if n.Kind.IsInteger() {
		return float64(n.num), true
	}
	return 0, false
}

func (n *Node) Str() (string, bool) {
	if n == nil || n.Kind != KindString {
		return "", false
	}
	return n.str, true
}

func (n *Node) Bytes() ([]byte, bool) {
	if n == nil || n.Kind != KindByteArray {
		return nil, false
	}
	return n.bytes, true
}
