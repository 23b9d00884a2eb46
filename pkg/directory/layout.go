package directory

import (
	"fmt"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
)

// PropertyDecl is the embedder-declared shape of one property, before
// offset assignment.
type PropertyDecl struct {
	Name string
	Kind PropertyKind

	IntWidth int // UnsignedInt/SignedInt/Padding: byte width 1..8, used as declared (0 is rejected by Freeze)

	ArrayInlineSize int
	ArrayStoreKind  StoreKind
	ArrayStoreID    uint8
	ArrayRefWidth   int // used as declared; never narrowed automatically

	DeportedStoreID uint8
	DeportedWidth   int // inline key width 1..8, used as declared (0 is rejected by Freeze)
}

// VariantDecl names one variant and its property list.
type VariantDecl struct {
	Name       string
	Properties []PropertyDecl
}

// Schema is the embedder's declaration of an entry store's shape:
// common properties shared by every entry, plus an optional set of named
// variants, plus the property names usable as index sort keys.
type Schema struct {
	Common   []PropertyDecl
	Variants []VariantDecl
	SortKeys []string
}

// Layout is the frozen, offset-assigned description of one entry store,
// produced by Schema.Freeze. Every record in the store shares this layout;
// EntrySize is its fixed width.
type Layout struct {
	Common []Property

	HasVariant   bool
	VariantNames map[string]uint8
	VariantIDs   []string // index = variant id, for stable iteration/encoding
	Variants     [][]Property
	VariantOff   int // byte offset of the 1-byte variant-id field

	EntrySize int
}

// Freeze assigns offsets and widths, producing an immutable Layout. Integer
// widths are taken exactly as declared: a width of 0 is rejected, and
// neither Freeze nor the entry store writers narrow widths from the values
// actually written.
func (s *Schema) Freeze() (*Layout, error) {
	l := &Layout{}
	offset := 0
	for _, decl := range s.Common {
		p := Property{
			Name:            decl.Name,
			Kind:            decl.Kind,
			IntWidth:        decl.IntWidth,
			ArrayInlineSize: decl.ArrayInlineSize,
			ArrayStoreKind:  decl.ArrayStoreKind,
			ArrayStoreID:    decl.ArrayStoreID,
			ArrayRefWidth:   decl.ArrayRefWidth,
			DeportedStoreID: decl.DeportedStoreID,
		}
		if p.Kind == KindDeportedUnsignedInt || p.Kind == KindDeportedSignedInt {
			p.IntWidth = decl.DeportedWidth
		}
		if err := p.computeWidth(); err != nil {
			return nil, err
		}
		p.Offset = offset
		offset += p.Width
		l.Common = append(l.Common, p)
	}

	if len(s.Variants) == 0 {
		l.EntrySize = offset
		return l, nil
	}

	l.HasVariant = true
	l.VariantOff = offset
	l.VariantNames = make(map[string]uint8, len(s.Variants))
	maxWidth := 0
	for vid, vdecl := range s.Variants {
		if vid > 255 {
			return nil, fmt.Errorf("directory: too many variants (max 256)")
		}
		l.VariantNames[vdecl.Name] = uint8(vid)
		l.VariantIDs = append(l.VariantIDs, vdecl.Name)

		voff := l.VariantOff + 1 // past the variant-id byte
		var props []Property
		for _, decl := range vdecl.Properties {
			p := Property{
				Name:            decl.Name,
				Kind:            decl.Kind,
				IntWidth:        decl.IntWidth,
				ArrayInlineSize: decl.ArrayInlineSize,
				ArrayStoreKind:  decl.ArrayStoreKind,
				ArrayStoreID:    decl.ArrayStoreID,
				ArrayRefWidth:   decl.ArrayRefWidth,
				DeportedStoreID: decl.DeportedStoreID,
			}
			if p.Kind == KindDeportedUnsignedInt || p.Kind == KindDeportedSignedInt {
				p.IntWidth = decl.DeportedWidth
			}
			if err := p.computeWidth(); err != nil {
				return nil, err
			}
			p.Offset = voff
			voff += p.Width
			props = append(props, p)
		}
		l.Variants = append(l.Variants, props)
		width := voff - l.VariantOff - 1
		if width > maxWidth {
			maxWidth = width
		}
	}
	l.EntrySize = l.VariantOff + 1 + maxWidth
	return l, nil
}

// VariantProperties returns the property list for the given variant id,
// including the common properties that precede the variant-specific part.
func (l *Layout) VariantProperties(variantID uint8) ([]Property, error) {
	if !l.HasVariant {
		return l.Common, nil
	}
	if int(variantID) >= len(l.Variants) {
		return nil, fmt.Errorf("directory: variant id %d out of range (%d variants)", variantID, len(l.Variants))
	}
	all := make([]Property, 0, len(l.Common)+len(l.Variants[variantID]))
	all = append(all, l.Common...)
	all = append(all, l.Variants[variantID]...)
	return all, nil
}

// Encode serializes the layout header: entry_size(4) + common_count(2) +
// variant_count(1) + variant name table + common property records +
// per-variant property-count + property records.
func (l *Layout) Encode() []byte {
	var buf []byte
	put32 := func(v uint32) {
		b := make([]byte, 4)
		bases.WriteUint(b, uint64(v), 4)
		buf = append(buf, b...)
	}
	put16 := func(v uint16) {
		b := make([]byte, 2)
		bases.WriteUint(b, uint64(v), 2)
		buf = append(buf, b...)
	}

	put32(uint32(l.EntrySize))
	put16(uint16(len(l.Common)))
	variantCount := len(l.Variants)
	buf = append(buf, uint8(variantCount))

	for _, name := range l.VariantIDs {
		buf = append(buf, uint8(len(name)))
		buf = append(buf, name...)
	}
	for _, p := range l.Common {
		buf = append(buf, encodePropertyRecord(p)...)
	}
	for _, props := range l.Variants {
		put16(uint16(len(props)))
		for _, p := range props {
			buf = append(buf, encodePropertyRecord(p)...)
		}
	}
	return buf
}

func encodePropertyRecord(p Property) []byte {
	kb, err := p.encodeKindByte()
	if err != nil {
		panic(err) // Freeze already validated every property
	}
	rec := []byte{uint8(len(p.Name))}
	rec = append(rec, p.Name...)
	rec = append(rec, kb)
	if p.Kind == KindArray {
		mode := byte(p.ArrayStoreKind)
		rec = append(rec, mode)
		if p.ArrayStoreKind != StoreNone {
			rec = append(rec, p.ArrayStoreID, byte(p.ArrayRefWidth))
		}
	}
	if p.Kind == KindDeportedUnsignedInt || p.Kind == KindDeportedSignedInt {
		rec = append(rec, p.DeportedStoreID)
	}
	return rec
}

// DecodeLayout parses a layout header previously produced by Encode, then
// re-runs offset/width assignment identically to Freeze.
func DecodeLayout(buf []byte) (*Layout, error) {
	p := bases.NewParser(buf, 0)
	entrySize, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	commonCount, err := p.ReadU16()
	if err != nil {
		return nil, err
	}
	variantCount, err := p.ReadU8()
	if err != nil {
		return nil, err
	}

	names := make([]string, variantCount)
	for i := range names {
		n, err := p.ReadU8()
		if err != nil {
			return nil, err
		}
		b, err := p.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		names[i] = string(b)
	}

	common := make([]PropertyDecl, commonCount)
	for i := range common {
		decl, err := decodePropertyRecord(p)
		if err != nil {
			return nil, err
		}
		common[i] = decl
	}

	schema := &Schema{Common: common}
	for _, name := range names {
		cnt, err := p.ReadU16()
		if err != nil {
			return nil, err
		}
		props := make([]PropertyDecl, cnt)
		for i := range props {
			decl, err := decodePropertyRecord(p)
			if err != nil {
				return nil, err
			}
			props[i] = decl
		}
		schema.Variants = append(schema.Variants, VariantDecl{Name: name, Properties: props})
	}

	l, err := schema.Freeze()
	if err != nil {
		return nil, err
	}
	if l.EntrySize != int(entrySize) {
		return nil, fmt.Errorf("directory: layout entry size mismatch: header says %d, computed %d", entrySize, l.EntrySize)
	}
	return l, nil
}

func decodePropertyRecord(p *bases.Parser) (PropertyDecl, error) {
	nameLen, err := p.ReadU8()
	if err != nil {
		return PropertyDecl{}, err
	}
	nameBytes, err := p.ReadBytes(int(nameLen))
	if err != nil {
		return PropertyDecl{}, err
	}
	kb, err := p.ReadU8()
	if err != nil {
		return PropertyDecl{}, err
	}
	kind, nibble := splitKindByte(kb)
	decl := PropertyDecl{Name: string(nameBytes), Kind: kind}
	switch kind {
	case KindPadding, KindUnsignedInt, KindSignedInt:
		decl.IntWidth = widthFromNibble(nibble)
	case KindContentAddress, KindVariantId:
		// fixed width, nothing else to read
	case KindArray:
		decl.ArrayInlineSize = int(nibble)
		mode, err := p.ReadU8()
		if err != nil {
			return PropertyDecl{}, err
		}
		decl.ArrayStoreKind = StoreKind(mode)
		if decl.ArrayStoreKind != StoreNone {
			id, err := p.ReadU8()
			if err != nil {
				return PropertyDecl{}, err
			}
			rw, err := p.ReadU8()
			if err != nil {
				return PropertyDecl{}, err
			}
			decl.ArrayStoreID = id
			decl.ArrayRefWidth = int(rw)
		}
	case KindDeportedUnsignedInt, KindDeportedSignedInt:
		decl.DeportedWidth = widthFromNibble(nibble)
		id, err := p.ReadU8()
		if err != nil {
			return PropertyDecl{}, err
		}
		decl.DeportedStoreID = id
	case KindReserved:
		return PropertyDecl{}, fmt.Errorf("directory: property kind 0x40: %w", jbkerr.ErrReservedPropertyKind)
	default:
		return PropertyDecl{}, fmt.Errorf("directory: unknown property kind byte 0x%02x", kb)
	}
	return decl, nil
}
