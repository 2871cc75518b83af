package types

import "bytes"

// KeySize is the fixed width of an index key. Keys are the first KeySize
// bytes of the indexed attribute; shorter material is NUL-padded on the
// right so every comparison sees exactly KeySize bytes.
const KeySize = 10

// Key is a fixed-width string prefix, ordered by unsigned byte compare.
type Key [KeySize]byte

// MakeKey builds a Key from raw attribute bytes, right-padding with NUL.
func MakeKey(b []byte) Key {
	var k Key
	copy(k[:], b)
	return k
}

// Compare returns -1, 0, or 1 per bytes.Compare over the full width.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

// IsZero reports whether the key is the zero-filled sentinel left behind
// by slot compaction. Not a legal key value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// String trims trailing NULs for display.
func (k Key) String() string {
	return string(bytes.TrimRight(k[:], "\x00"))
}
