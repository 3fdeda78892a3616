package nbt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxDepth bounds compound and list nesting in a tag stream.
const MaxDepth = 512

var (
	errTruncated = errors.New("truncated tag stream")
	errTooDeep   = fmt.Errorf("nesting exceeds %d levels", MaxDepth)
)

// minPayload is the smallest encoded size of one payload of each kind.
var minPayload = [...]int{
	KindByte:      1,
	KindShort:     2,
	KindInt:       4,
	KindLong:      8,
	KindFloat:     4,
	KindDouble:    8,
	KindByteArray: 4,
	KindString:    2,
	KindList:      5,
	KindCompound:  1,
	KindIntArray:  4,
	KindLongArray: 4,
}

// scanner walks a tag stream without materializing it. Every declared
// length must fit in the bytes that remain.
type scanner struct {
	data []byte
	off  int
}

func validate(data []byte) error {
	s := &scanner{data: data}
	kind, err := s.kind()
	if err != nil {
		return err
	}
	if kind == KindEnd {
		return nil
	}
	if err := s.skipString(); err != nil {
		return err
	}
	return s.payload(kind, 0)
}

func (s *scanner) remaining() int { return len(s.data) - s.off }

func (s *scanner) skip(n int) error {
	if n < 0 || n > s.remaining() {
		return errTruncated
	}
	s.off += n
	return nil
}

func (s *scanner) kind() (Kind, error) {
	if s.remaining() < 1 {
		return 0, errTruncated
	}
	k := Kind(s.data[s.off])
	s.off++
	return k, nil
}

func (s *scanner) length() (int, error) {
	if s.remaining() < 4 {
		return 0, errTruncated
	}
	n := int32(binary.BigEndian.Uint32(s.data[s.off:]))
	s.off += 4
	if n < 0 {
		return 0, fmt.Errorf("negative length %d", n)
	}
	return int(n), nil
}

func (s *scanner) skipString() error {
	if s.remaining() < 2 {
		return errTruncated
	}
	n := int(binary.BigEndian.Uint16(s.data[s.off:]))
	s.off += 2
	return s.skip(n)
}

func (s *scanner) array(width int) error {
	n, err := s.length()
	if err != nil {
		return err
	}
	if n > s.remaining()/width {
		return fmt.Errorf("array length %d exceeds remaining %d bytes", n, s.remaining())
	}
	return s.skip(n * width)
}

func (s *scanner) payload(k Kind, depth int) error {
	switch k {
	case KindByte, KindShort, KindInt, KindLong, KindFloat, KindDouble:
		return s.skip(minPayload[k])
	case KindString:
		return s.skipString()
	case KindByteArray:
		return s.array(1)
	case KindIntArray:
		return s.array(4)
	case KindLongArray:
		return s.array(8)
	case KindList:
		if depth >= MaxDepth {
			return errTooDeep
		}
		elem, err := s.kind()
		if err != nil {
			return err
		}
		n, err := s.length()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if elem == KindEnd || int(elem) >= len(minPayload) {
			return fmt.Errorf("list of tag %d with %d entries", elem, n)
		}
		if n > s.remaining()/minPayload[elem] {
			return fmt.Errorf("list length %d exceeds remaining %d bytes", n, s.remaining())
		}
		for i := 0; i < n; i++ {
			if err := s.payload(elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case KindCompound:
		if depth >= MaxDepth {
			return errTooDeep
		}
		for {
			child, err := s.kind()
			if err != nil {
				return err
			}
			if child == KindEnd {
				return nil
			}
			if err := s.skipString(); err != nil {
				return err
			}
			if err := s.payload(child, depth+1); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("unknown tag %d", k)
}
