// Package codec converts Go values to and from the bytes a key-value engine
// stores, and back. husky needs two different strategies: a "portable" one
// for keys, where the byte encoding must sort the same way the values
// compare (so the underlying engine's natural byte-ordered iteration gives
// correct key order), and an "archival" one for values, where any durable
// encoding will do and a checksum is worth paying for.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"fmt"
)

// Codec converts a T to bytes and back. It is a pair of functions rather
// than an interface so that callers can build one for any type, including
// ones they don't own, without wrapper types.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// Gob returns an archival codec backed by encoding/gob. This is the
// fallback for any type that doesn't have a more specific portable codec
// below: gob handles arbitrary exported struct fields via reflection
// without requiring the type to implement a marshal interface.
func Gob[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(v); err != nil {
				return nil, fmt.Errorf("gob encode: %w", err)
			}
			return buf.Bytes(), nil
		},
		Decode: func(b []byte) (T, error) {
			var v T
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
				return v, fmt.Errorf("gob decode: %w", err)
			}
			return v, nil
		},
	}
}

// Archival wraps Gob with a trailing SHA-256 checksum. When validate is
// true, Decode recomputes the checksum and errors on mismatch; this is the
// ValidateOnRead knob surfaced in configuration. When false, the checksum
// is still written (so a later validating reader can check it) but not
// verified on the way in, trading a corruption check for read speed.
func Archival[T any](validate bool) Codec[T] {
	inner := Gob[T]()
	return Codec[T]{
		Encode: func(v T) ([]byte, error) {
			payload, err := inner.Encode(v)
			if err != nil {
				return nil, err
			}
			sum := sha256.Sum256(payload)
			out := make([]byte, 0, len(payload)+len(sum))
			out = append(out, payload...)
			out = append(out, sum[:]...)
			return out, nil
		},
		Decode: func(b []byte) (T, error) {
			var zero T
			if len(b) < sha256.Size {
				return zero, fmt.Errorf("archival decode: payload too short for checksum")
			}
			payload, sum := b[:len(b)-sha256.Size], b[len(b)-sha256.Size:]
			if validate {
				want := sha256.Sum256(payload)
				if !bytes.Equal(want[:], sum) {
					return zero, fmt.Errorf("archival decode: checksum mismatch")
				}
			}
			return inner.Decode(payload)
		},
	}
}

// BigEndianUint64 is a portable codec for uint64 keys: the encoding sorts
// identically to numeric order, so range scans over the raw bytes match
// range scans over the values.
func BigEndianUint64() Codec[uint64] {
	return Codec[uint64]{
		Encode: func(v uint64) ([]byte, error) {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, v)
			return b, nil
		},
		Decode: func(b []byte) (uint64, error) {
			if len(b) != 8 {
				return 0, fmt.Errorf("uint64 codec: want 8 bytes, got %d", len(b))
			}
			return binary.BigEndian.Uint64(b), nil
		},
	}
}

// BigEndianInt64 is a portable codec for int64 keys. The sign bit is
// flipped before encoding so that two's-complement negative values still
// sort before positive ones under plain byte comparison.
func BigEndianInt64() Codec[int64] {
	return Codec[int64]{
		Encode: func(v int64) ([]byte, error) {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, uint64(v)^(1<<63))
			return b, nil
		},
		Decode: func(b []byte) (int64, error) {
			if len(b) != 8 {
				return 0, fmt.Errorf("int64 codec: want 8 bytes, got %d", len(b))
			}
			return int64(binary.BigEndian.Uint64(b) ^ (1 << 63)), nil
		},
	}
}

// String is a portable codec for string keys: UTF-8 bytes already sort the
// same as Go string comparison.
func String() Codec[string] {
	return Codec[string]{
		Encode: func(v string) ([]byte, error) { return []byte(v), nil },
		Decode: func(b []byte) (string, error) { return string(b), nil },
	}
}

// Bytes is the identity codec.
func Bytes() Codec[[]byte] {
	return Codec[[]byte]{
		Encode: func(v []byte) ([]byte, error) { return append([]byte(nil), v...), nil },
		Decode: func(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil },
	}
}
