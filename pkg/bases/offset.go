// Package bases provides the address arithmetic and byte-level reading
// substrate shared by every pack kind: offsets, sizes, regions over an
// opaque source, and little-endian primitive decoding.
package bases

import "fmt"

// Offset is a byte position in a 64-bit address space.
type Offset uint64

// Size is a byte length in a 64-bit address space.
type Size uint64

// Add returns the offset s bytes past o.
func (o Offset) Add(s Size) Offset {
	return o + Offset(s)
}

// Sub returns the distance from other to o. Panics if other > o, since
// offsets never go negative in this model.
func (o Offset) Sub(other Offset) Size {
	if other > o {
		panic(fmt.Sprintf("bases: offset underflow %d - %d", o, other))
	}
	return Size(o - other)
}

func (o Offset) String() string {
	return fmt.Sprintf("0x%x", uint64(o))
}

func (s Size) String() string {
	return fmt.Sprintf("%d", uint64(s))
}
