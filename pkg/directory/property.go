// Package directory implements the DirectoryPack: entry stores built from a
// schema-driven, variant-bearing, fixed-width record layout, the value
// stores they reference, named indexes over them, and the builder/finder
// pair that projects stored bytes into caller-defined typed entries.
package directory

import (
	"fmt"

	"github.com/jbkfmt/jubako/pkg/jbkerr"
)

// PropertyKind is the high nibble of a property-kind byte (spec.md §6).
type PropertyKind uint8

const (
	KindPadding             PropertyKind = 0x00
	KindContentAddress      PropertyKind = 0x10
	KindUnsignedInt         PropertyKind = 0x20
	KindSignedInt           PropertyKind = 0x30
	KindReserved            PropertyKind = 0x40 // redirection/sub-range, never produced
	KindArray               PropertyKind = 0x50
	KindVariantId           PropertyKind = 0x80
	KindDeportedUnsignedInt PropertyKind = 0xA0
	KindDeportedSignedInt   PropertyKind = 0xB0
)

// StoreKind selects which ValueStore kind backs an Array or deported-int
// property's overflow data.
type StoreKind uint8

const (
	StoreNone StoreKind = iota
	StorePlain
	StoreIndexed
)

// kindByte packs kind (high nibble) and a 0..15 low-nibble detail.
func kindByte(kind PropertyKind, nibble uint8) byte {
	return byte(kind) | (nibble & 0x0F)
}

// splitKindByte separates a property-kind byte into its kind and detail
// nibble.
func splitKindByte(b byte) (PropertyKind, uint8) {
	return PropertyKind(b & 0xF0), b & 0x0F
}

// widthFromNibble maps the size-1 low-nibble convention used by
// UnsignedInt/SignedInt/Padding/DeportedUnsignedInt/DeportedSignedInt to a
// byte width in 1..8.
func widthFromNibble(nibble uint8) int {
	return int(nibble&0x07) + 1
}

func nibbleFromWidth(width int) (uint8, error) {
	if width < 1 || width > 8 {
		return 0, fmt.Errorf("directory: integer width %d out of [1,8]: %w", width, jbkerr.ErrEncoding)
	}
	return uint8(width - 1), nil
}

// Property is the frozen, offset-assigned description of one field within
// an entry record, as produced by Schema.Freeze.
type Property struct {
	Name string
	Kind PropertyKind

	Offset int // byte offset within the entry record
	Width  int // total on-disk width of this property, including any tail

	IntWidth int // UnsignedInt / SignedInt / Padding / DeportedUnsignedInt / DeportedSignedInt key width

	ArrayInlineSize int       // Array: bytes always stored inline
	ArrayStoreKind  StoreKind // Array: StoreNone if values never overflow inline
	ArrayStoreID    uint8
	ArrayRefWidth   int // Array: width of each tail reference field

	DeportedStoreID uint8 // DeportedUnsignedInt / DeportedSignedInt
}

func (p *Property) computeWidth() error {
	switch p.Kind {
	case KindPadding, KindUnsignedInt, KindSignedInt, KindDeportedUnsignedInt, KindDeportedSignedInt:
		if p.IntWidth < 1 || p.IntWidth > 8 {
			return fmt.Errorf("directory: property %q: invalid width %d", p.Name, p.IntWidth)
		}
		if p.Kind == KindDeportedUnsignedInt || p.Kind == KindDeportedSignedInt {
			p.Width = p.IntWidth // inline key only; resolved value lives in the store
		} else {
			p.Width = p.IntWidth
		}
	case KindContentAddress:
		p.Width = 4
	case KindVariantId:
		p.Width = 1
	case KindArray:
		if p.ArrayInlineSize < 0 || p.ArrayInlineSize > 15 {
			return fmt.Errorf("directory: property %q: array inline size %d out of [0,15]", p.Name, p.ArrayInlineSize)
		}
		p.Width = 1 + p.ArrayInlineSize // 1-byte logical length + inline prefix
		if p.ArrayStoreKind != StoreNone {
			switch p.ArrayStoreKind {
			case StorePlain:
				p.Width += 2 * p.ArrayRefWidth // offset + size
			case StoreIndexed:
				p.Width += p.ArrayRefWidth // id
			default:
				return fmt.Errorf("directory: property %q: unknown array store kind", p.Name)
			}
		}
	case KindReserved:
		return fmt.Errorf("directory: property %q: %w", p.Name, jbkerr.ErrReservedPropertyKind)
	default:
		return fmt.Errorf("directory: property %q: unknown kind 0x%02x", p.Name, p.Kind)
	}
	return nil
}

// encodeKindByte produces the on-disk property-kind byte for p.
func (p *Property) encodeKindByte() (byte, error) {
	switch p.Kind {
	case KindPadding, KindUnsignedInt, KindSignedInt:
		n, err := nibbleFromWidth(p.IntWidth)
		if err != nil {
			return 0, err
		}
		return kindByte(p.Kind, n), nil
	case KindDeportedUnsignedInt, KindDeportedSignedInt:
		n, err := nibbleFromWidth(p.IntWidth)
		if err != nil {
			return 0, err
		}
		return kindByte(p.Kind, n), nil
	case KindContentAddress, KindVariantId:
		return kindByte(p.Kind, 0), nil
	case KindArray:
		return kindByte(p.Kind, uint8(p.ArrayInlineSize)), nil
	default:
		return 0, fmt.Errorf("directory: cannot encode kind 0x%02x", p.Kind)
	}
}
