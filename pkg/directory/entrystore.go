package directory

import (
	"fmt"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
	"github.com/jbkfmt/jubako/pkg/valuestore"
)

// EntryStoreWriter accumulates fixed-width records sharing one Layout.
// Array values that overflow their inline budget, and every deported-int
// value, are pushed into the ValueStore writers named by Stores, keyed by
// store id.
type EntryStoreWriter struct {
	Layout  *Layout
	Stores  map[uint8]any // uint8 -> *valuestore.PlainWriter | *valuestore.IndexedWriter
	records [][]byte
	patches []indexPatch
}

// indexPatch records where an IndexedWriter-assigned id was written into a
// record, so it can be rewritten once the store's Finalize remaps
// insertion-order ids to their sorted position.
type indexPatch struct {
	recIdx  int
	offset  int
	width   int
	storeID uint8
	oldID   uint64
}

// NewEntryStoreWriter returns a writer for the given frozen layout.
func NewEntryStoreWriter(layout *Layout, stores map[uint8]any) *EntryStoreWriter {
	return &EntryStoreWriter{Layout: layout, Stores: stores}
}

// AddRecord encodes one record for the given variant (0 if the layout has
// no variants) from a name -> value map and appends it. Accepted value
// types by property kind: ContentAddress -> jbkpack.ContentAddress,
// UnsignedInt/DeportedUnsignedInt -> uint64, SignedInt/DeportedSignedInt
// -> int64, Array -> []byte. Padding and VariantId are never supplied by
// the caller.
func (w *EntryStoreWriter) AddRecord(variantID uint8, values map[string]any) error {
	props, err := w.Layout.VariantProperties(variantID)
	if err != nil {
		return err
	}
	recIdx := len(w.records)
	rec := make([]byte, w.Layout.EntrySize)
	if w.Layout.HasVariant {
		rec[w.Layout.VariantOff] = variantID
	}
	for _, p := range props {
		if err := w.encodeProperty(recIdx, rec, p, values[p.Name]); err != nil {
			return fmt.Errorf("directory: property %q: %w", p.Name, err)
		}
	}
	w.records = append(w.records, rec)
	return nil
}

func (w *EntryStoreWriter) encodeProperty(recIdx int, rec []byte, p Property, value any) error {
	field := rec[p.Offset : p.Offset+p.Width]
	switch p.Kind {
	case KindPadding:
		return nil
	case KindContentAddress:
		ca, ok := value.(jbkpack.ContentAddress)
		if !ok {
			return fmt.Errorf("expected jbkpack.ContentAddress, got %T", value)
		}
		enc, err := ca.Encode()
		if err != nil {
			return err
		}
		copy(field, enc[:])
	case KindUnsignedInt:
		v, ok := value.(uint64)
		if !ok {
			return fmt.Errorf("expected uint64, got %T", value)
		}
		if bases.NeededBytes(v) > p.IntWidth {
			return fmt.Errorf("value %d does not fit in %d bytes: %w", v, p.IntWidth, jbkerr.ErrEncoding)
		}
		bases.WriteUint(field, v, p.IntWidth)
	case KindSignedInt:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", value)
		}
		bases.WriteInt(field, v, p.IntWidth)
	case KindArray:
		b, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", value)
		}
		return w.encodeArray(recIdx, field, p, b)
	case KindDeportedUnsignedInt:
		return w.encodeDeportedUnsigned(recIdx, field, p, value)
	case KindDeportedSignedInt:
		return w.encodeDeportedSigned(recIdx, field, p, value)
	default:
		return fmt.Errorf("cannot encode property kind 0x%02x", p.Kind)
	}
	return nil
}

func (w *EntryStoreWriter) encodeArray(recIdx int, field []byte, p Property, b []byte) error {
	if len(b) > 255 {
		return fmt.Errorf("array length %d exceeds 255: %w", len(b), jbkerr.ErrEncoding)
	}
	field[0] = byte(len(b))
	inline := field[1 : 1+p.ArrayInlineSize]
	n := len(b)
	if n > p.ArrayInlineSize {
		n = p.ArrayInlineSize
	}
	copy(inline, b[:n])

	if len(b) <= p.ArrayInlineSize {
		return nil
	}
	if p.ArrayStoreKind == StoreNone {
		return fmt.Errorf("array length %d exceeds inline size %d with no overflow store: %w", len(b), p.ArrayInlineSize, jbkerr.ErrCapacity)
	}
	tailOff := 1 + p.ArrayInlineSize
	tail := field[tailOff:]
	switch p.ArrayStoreKind {
	case StorePlain:
		store, ok := w.Stores[p.ArrayStoreID].(*valuestore.PlainWriter)
		if !ok {
			return fmt.Errorf("no PlainWriter registered for store id %d", p.ArrayStoreID)
		}
		off, size := store.Add(b)
		if bases.NeededBytes(off) > p.ArrayRefWidth || bases.NeededBytes(size) > p.ArrayRefWidth {
			return fmt.Errorf("array store reference does not fit in %d bytes: %w", p.ArrayRefWidth, jbkerr.ErrEncoding)
		}
		bases.WriteUint(tail[:p.ArrayRefWidth], off, p.ArrayRefWidth)
		bases.WriteUint(tail[p.ArrayRefWidth:2*p.ArrayRefWidth], size, p.ArrayRefWidth)
	case StoreIndexed:
		store, ok := w.Stores[p.ArrayStoreID].(*valuestore.IndexedWriter)
		if !ok {
			return fmt.Errorf("no IndexedWriter registered for store id %d", p.ArrayStoreID)
		}
		id := store.Add(b)
		if bases.NeededBytes(id) > p.ArrayRefWidth {
			return fmt.Errorf("array store id does not fit in %d bytes: %w", p.ArrayRefWidth, jbkerr.ErrEncoding)
		}
		bases.WriteUint(tail[:p.ArrayRefWidth], id, p.ArrayRefWidth)
		w.patches = append(w.patches, indexPatch{
			recIdx:  recIdx,
			offset:  p.Offset + tailOff,
			width:   p.ArrayRefWidth,
			storeID: p.ArrayStoreID,
			oldID:   id,
		})
	}
	return nil
}

func (w *EntryStoreWriter) encodeDeportedUnsigned(recIdx int, field []byte, p Property, value any) error {
	v, ok := value.(uint64)
	if !ok {
		return fmt.Errorf("expected uint64, got %T", value)
	}
	buf := make([]byte, 8)
	bases.WriteUint(buf, v, 8)
	return w.encodeDeportedKey(recIdx, field, p, buf)
}

func (w *EntryStoreWriter) encodeDeportedSigned(recIdx int, field []byte, p Property, value any) error {
	v, ok := value.(int64)
	if !ok {
		return fmt.Errorf("expected int64, got %T", value)
	}
	buf := make([]byte, 8)
	bases.WriteInt(buf, v, 8)
	return w.encodeDeportedKey(recIdx, field, p, buf)
}

func (w *EntryStoreWriter) encodeDeportedKey(recIdx int, field []byte, p Property, raw []byte) error {
	store, ok := w.Stores[p.DeportedStoreID].(*valuestore.IndexedWriter)
	if !ok {
		return fmt.Errorf("no IndexedWriter registered for deported store id %d", p.DeportedStoreID)
	}
	id := store.Add(raw)
	if bases.NeededBytes(id) > p.IntWidth {
		return fmt.Errorf("deported key does not fit in %d bytes: %w", p.IntWidth, jbkerr.ErrEncoding)
	}
	bases.WriteUint(field, id, p.IntWidth)
	w.patches = append(w.patches, indexPatch{
		recIdx:  recIdx,
		offset:  p.Offset,
		width:   p.IntWidth,
		storeID: p.DeportedStoreID,
		oldID:   id,
	})
	return nil
}

// ApplyRemap rewrites every recorded reference into the indexed store
// named by storeID through remap, translating the insertion-order id each
// reference was encoded with into its position in the store's sorted,
// finalized body. Called after that store's Finalize, before this writer's
// own Finalize serializes the records.
func (w *EntryStoreWriter) ApplyRemap(storeID uint8, remap []uint64) error {
	for _, patch := range w.patches {
		if patch.storeID != storeID {
			continue
		}
		newID := remap[patch.oldID]
		if bases.NeededBytes(newID) > patch.width {
			return fmt.Errorf("directory: remapped store id %d does not fit in %d bytes: %w", newID, patch.width, jbkerr.ErrEncoding)
		}
		field := w.records[patch.recIdx][patch.offset : patch.offset+patch.width]
		bases.WriteUint(field, newID, patch.width)
	}
	return nil
}

// Count reports the number of records added so far.
func (w *EntryStoreWriter) Count() int {
	return len(w.records)
}

// Finalize serializes the layout header, the record count, and every
// record's fixed-width bytes in insertion order. Array/deported overflow
// data lives in the caller's ValueStore writers and is finalized
// separately by the caller.
func (w *EntryStoreWriter) Finalize() []byte {
	header := w.Layout.Encode()
	out := make([]byte, 0, len(header)+4+len(w.records)*w.Layout.EntrySize)
	out = append(out, header...)
	countBuf := make([]byte, 4)
	bases.WriteUint(countBuf, uint64(len(w.records)), 4)
	out = append(out, countBuf...)
	for _, rec := range w.records {
		out = append(out, rec...)
	}
	return out
}

// EntryStoreReader resolves records against a decoded entry store body. The
// stores map must supply a reader for every store id referenced by Array or
// deported-int properties (*valuestore.PlainReader or *valuestore.IndexedReader).
type EntryStoreReader struct {
	Layout  *Layout
	Stores  map[uint8]any
	records []byte
	count   int
}

// NewEntryStoreReader parses the layout header and record count, keeping
// the raw record bytes for lazy per-record decoding.
func NewEntryStoreReader(buf []byte, stores map[uint8]any) (*EntryStoreReader, error) {
	layout, err := DecodeLayout(buf)
	if err != nil {
		return nil, err
	}
	headerLen := len(layout.Encode())
	if len(buf) < headerLen+4 {
		return nil, fmt.Errorf("directory: entry store header truncated")
	}
	count := int(bases.ReadUintBytes(buf[headerLen:headerLen+4], 4))
	records := buf[headerLen+4:]
	want := count * layout.EntrySize
	if len(records) < want {
		return nil, fmt.Errorf("directory: entry store body truncated: want %d bytes, have %d", want, len(records))
	}
	return &EntryStoreReader{Layout: layout, Stores: stores, records: records[:want], count: count}, nil
}

// Count reports the number of records in the store.
func (r *EntryStoreReader) Count() int {
	return r.count
}

// Record returns the raw decoder for entry index i.
func (r *EntryStoreReader) Record(i int) (*Record, error) {
	if i < 0 || i >= r.count {
		return nil, fmt.Errorf("directory: record index %d out of bounds of %d", i, r.count)
	}
	start := i * r.Layout.EntrySize
	raw := r.records[start : start+r.Layout.EntrySize]
	variantID := uint8(0)
	if r.Layout.HasVariant {
		variantID = raw[r.Layout.VariantOff]
	}
	props, err := r.Layout.VariantProperties(variantID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Property, len(props))
	for _, p := range props {
		byName[p.Name] = p
	}
	return &Record{raw: raw, variantID: variantID, props: byName, stores: r.Stores}, nil
}

// Record is one decoded entry: a raw fixed-width byte slice plus the
// property layout needed to interpret it, resolved against variant id.
type Record struct {
	raw       []byte
	variantID uint8
	props     map[string]Property
	stores    map[uint8]any
}

// VariantID returns the record's variant id (0 if the store has none).
func (rec *Record) VariantID() uint8 {
	return rec.variantID
}

func (rec *Record) property(name string) (Property, error) {
	p, ok := rec.props[name]
	if !ok {
		return Property{}, fmt.Errorf("directory: no property %q in this record's variant", name)
	}
	return p, nil
}

// Uint reads an UnsignedInt property.
func (rec *Record) Uint(name string) (uint64, error) {
	p, err := rec.property(name)
	if err != nil {
		return 0, err
	}
	if p.Kind != KindUnsignedInt {
		return 0, fmt.Errorf("directory: property %q is not UnsignedInt", name)
	}
	return bases.ReadUintBytes(rec.field(p), p.IntWidth), nil
}

// Int reads a SignedInt property.
func (rec *Record) Int(name string) (int64, error) {
	p, err := rec.property(name)
	if err != nil {
		return 0, err
	}
	if p.Kind != KindSignedInt {
		return 0, fmt.Errorf("directory: property %q is not SignedInt", name)
	}
	return bases.ReadIntBytes(rec.field(p), p.IntWidth), nil
}

// ContentAddress reads a ContentAddress property.
func (rec *Record) ContentAddress(name string) (jbkpack.ContentAddress, error) {
	p, err := rec.property(name)
	if err != nil {
		return jbkpack.ContentAddress{}, err
	}
	if p.Kind != KindContentAddress {
		return jbkpack.ContentAddress{}, fmt.Errorf("directory: property %q is not ContentAddress", name)
	}
	return jbkpack.DecodeContentAddress(rec.field(p))
}

// Array reads an Array property, resolving overflow data from the bound
// value store when the logical length exceeds the inline budget.
func (rec *Record) Array(name string) ([]byte, error) {
	p, err := rec.property(name)
	if err != nil {
		return nil, err
	}
	if p.Kind != KindArray {
		return nil, fmt.Errorf("directory: property %q is not Array", name)
	}
	field := rec.field(p)
	length := int(field[0])
	inline := field[1 : 1+p.ArrayInlineSize]
	if length <= p.ArrayInlineSize {
		return append([]byte(nil), inline[:length]...), nil
	}
	tail := field[1+p.ArrayInlineSize:]
	switch p.ArrayStoreKind {
	case StorePlain:
		store, ok := rec.stores[p.ArrayStoreID].(*valuestore.PlainReader)
		if !ok {
			return nil, fmt.Errorf("directory: no PlainReader bound for store id %d", p.ArrayStoreID)
		}
		off := bases.ReadUintBytes(tail[:p.ArrayRefWidth], p.ArrayRefWidth)
		size := bases.ReadUintBytes(tail[p.ArrayRefWidth:2*p.ArrayRefWidth], p.ArrayRefWidth)
		return store.Get(off, size)
	case StoreIndexed:
		store, ok := rec.stores[p.ArrayStoreID].(*valuestore.IndexedReader)
		if !ok {
			return nil, fmt.Errorf("directory: no IndexedReader bound for store id %d", p.ArrayStoreID)
		}
		id := bases.ReadUintBytes(tail[:p.ArrayRefWidth], p.ArrayRefWidth)
		return store.Get(id)
	default:
		return nil, fmt.Errorf("directory: array %q overflows inline size with no store bound", name)
	}
}

// DeportedUint reads a DeportedUnsignedInt property's resolved value.
func (rec *Record) DeportedUint(name string) (uint64, error) {
	p, err := rec.property(name)
	if err != nil {
		return 0, err
	}
	if p.Kind != KindDeportedUnsignedInt {
		return 0, fmt.Errorf("directory: property %q is not DeportedUnsignedInt", name)
	}
	raw, err := rec.resolveDeported(p)
	if err != nil {
		return 0, err
	}
	return bases.ReadUintBytes(raw, 8), nil
}

// DeportedInt reads a DeportedSignedInt property's resolved value.
func (rec *Record) DeportedInt(name string) (int64, error) {
	p, err := rec.property(name)
	if err != nil {
		return 0, err
	}
	if p.Kind != KindDeportedSignedInt {
		return 0, fmt.Errorf("directory: property %q is not DeportedSignedInt", name)
	}
	raw, err := rec.resolveDeported(p)
	if err != nil {
		return 0, err
	}
	return bases.ReadIntBytes(raw, 8), nil
}

func (rec *Record) resolveDeported(p Property) ([]byte, error) {
	store, ok := rec.stores[p.DeportedStoreID].(*valuestore.IndexedReader)
	if !ok {
		return nil, fmt.Errorf("directory: no IndexedReader bound for deported store id %d", p.DeportedStoreID)
	}
	key := bases.ReadUintBytes(rec.field(p), p.IntWidth)
	return store.Get(key)
}

func (rec *Record) field(p Property) []byte {
	return rec.raw[p.Offset : p.Offset+p.Width]
}
