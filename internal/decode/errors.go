// Package decode holds the error taxonomy shared by the item payload
// pipeline: the tree reader, the item decoder and the normalizer.
package decode

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindEncoding         Kind = "encoding"
	KindMalformed        Kind = "malformed"
	KindEmptyPayload     Kind = "empty_payload"
	KindOutOfRange       Kind = "out_of_range"
	KindEmbeddedDocument Kind = "embedded_document"
	// KindSurplusEntries is only ever reported as an anomaly.
	KindSurplusEntries Kind = "surplus_entries"
)

var (
	ErrEncoding         = errors.New("decode: encoding")
	ErrMalformed        = errors.New("decode: malformed")
	ErrEmptyPayload     = errors.New("decode: empty payload")
	ErrOutOfRange       = errors.New("decode: out of range")
	ErrEmbeddedDocument = errors.New("decode: embedded document")
	ErrSurplusEntries   = errors.New("decode: surplus entries")
)

func (k Kind) sentinel() error {
	switch k {
	case KindEncoding:
		return ErrEncoding
	case KindMalformed:
		return ErrMalformed
	case KindEmptyPayload:
		return ErrEmptyPayload
	case KindOutOfRange:
		return ErrOutOfRange
	case KindEmbeddedDocument:
		return ErrEmbeddedDocument
	case KindSurplusEntries:
		return ErrSurplusEntries
	default:
		return nil
	}
}

// Error is a classified failure. Field names the offending field path when
// one is known, e.g. "tag.ExtraAttributes.gems.COMBAT_0".
type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "decode: " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, decode.ErrMalformed) match by kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

func New(kind Kind, field string, err error) *Error {
	return &Error{Kind: kind, Field: field, Err: err}
}

func Errorf(kind Kind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind of a classified error, or "" when err is not one.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// FieldOf returns the field path of a classified error, if any.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
