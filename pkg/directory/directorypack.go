package directory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
	"github.com/jbkfmt/jubako/pkg/valuestore"
)

// ptrEntry is one (offset, size) pair in a tail pointer array.
type ptrEntry struct {
	Offset uint64
	Size   uint64
}

// Creator assembles a DirectoryPack body from the value stores, entry
// stores and indexes registered with it, then writes the full pack
// (header + body + tail + check-info) in one pass.
type Creator struct {
	UUID uuid.UUID

	valueStores map[uint8]any // id -> *valuestore.PlainWriter | *valuestore.IndexedWriter
	entryStores []*EntryStoreWriter
	indexes     []*Index
}

// NewCreator returns an empty DirectoryPack creator.
func NewCreator(id uuid.UUID) *Creator {
	return &Creator{UUID: id, valueStores: make(map[uint8]any)}
}

// AddValueStore registers a value store writer under id, for properties
// that reference it by store id.
func (c *Creator) AddValueStore(id uint8, w any) {
	switch w.(type) {
	case *valuestore.PlainWriter, *valuestore.IndexedWriter:
		c.valueStores[id] = w
	default:
		panic(fmt.Sprintf("directory: unsupported value store writer type %T", w))
	}
}

// ValueStores exposes the registered writers so the caller can populate
// them through EntryStoreWriter.AddRecord before calling Finalize.
func (c *Creator) ValueStores() map[uint8]any {
	return c.valueStores
}

// AddEntryStore registers a populated entry store writer and returns its
// index within the pack (used as entry_store_ptrs index and as the
// store_id an Index refers to).
func (c *Creator) AddEntryStore(w *EntryStoreWriter) int {
	c.entryStores = append(c.entryStores, w)
	return len(c.entryStores) - 1
}

// AddIndex registers a named index over a run of one entry store.
func (c *Creator) AddIndex(idx *Index) {
	c.indexes = append(c.indexes, idx)
}

// Finalize serializes the complete DirectoryPack: header, then value
// stores, then entry stores, then the value-store/entry-store/index tail
// pointer tables, then check-info. The tail's own byte offset is recorded
// in the header's free-data so a reader can locate it without scanning.
func (c *Creator) Finalize() ([]byte, error) {
	var body []byte

	valueStorePtrs := make([]ptrEntry, 0, len(c.valueStores))
	maxID := -1
	for id := range c.valueStores {
		if int(id) > maxID {
			maxID = int(id)
		}
	}
	for id := 0; id <= maxID; id++ {
		w, ok := c.valueStores[uint8(id)]
		if !ok {
			valueStorePtrs = append(valueStorePtrs, ptrEntry{})
			continue
		}
		var enc []byte
		switch s := w.(type) {
		case *valuestore.PlainWriter:
			enc = s.Finalize()
		case *valuestore.IndexedWriter:
			var remap []uint64
			enc, remap = s.Finalize()
			for _, es := range c.entryStores {
				if err := es.ApplyRemap(uint8(id), remap); err != nil {
					return nil, fmt.Errorf("directory: value store %d: %w", id, err)
				}
			}
		}
		valueStorePtrs = append(valueStorePtrs, ptrEntry{Offset: uint64(jbkpack.HeaderSize + len(body)), Size: uint64(len(enc))})
		body = append(body, enc...)
	}

	entryStorePtrs := make([]ptrEntry, 0, len(c.entryStores))
	for _, es := range c.entryStores {
		enc := es.Finalize()
		entryStorePtrs = append(entryStorePtrs, ptrEntry{Offset: uint64(jbkpack.HeaderSize + len(body)), Size: uint64(len(enc))})
		body = append(body, enc...)
	}

	tailOffset := uint64(jbkpack.HeaderSize + len(body))
	tail, err := c.encodeTail(valueStorePtrs, entryStorePtrs)
	if err != nil {
		return nil, err
	}
	body = append(body, tail...)

	header := &jbkpack.Header{
		Magic: jbkpack.KindDirectory,
		UUID:  c.UUID,
	}
	bases.WriteUint(header.FreeData[0:8], tailOffset, 8)
	header.Size = bases.Size(jbkpack.HeaderSize + len(body))
	header.CheckInfoPos = bases.Offset(jbkpack.HeaderSize + len(body))

	out := header.Encode()
	out = append(out, body...)
	out = append(out, jbkpack.ComputeCheckInfo(out)...)
	return out, nil
}

func (c *Creator) encodeTail(valueStorePtrs, entryStorePtrs []ptrEntry) ([]byte, error) {
	var buf []byte
	put32 := func(v uint32) {
		b := make([]byte, 4)
		bases.WriteUint(b, uint64(v), 4)
		buf = append(buf, b...)
	}
	put64 := func(v uint64) {
		b := make([]byte, 8)
		bases.WriteUint(b, v, 8)
		buf = append(buf, b...)
	}

	put32(uint32(len(valueStorePtrs)))
	for _, p := range valueStorePtrs {
		put64(p.Offset)
		put64(p.Size)
	}

	put32(uint32(len(entryStorePtrs)))
	for _, p := range entryStorePtrs {
		put64(p.Offset)
		put64(p.Size)
	}

	put32(uint32(len(c.indexes)))
	for _, idx := range c.indexes {
		enc, err := idx.Encode()
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// Pack is the read side of a DirectoryPack: resolved value stores, entry
// stores and indexes ready for Builder/Finder-style access.
type Pack struct {
	Header *jbkpack.Header

	valueStoreReaders map[int]any
	entryStores       []*EntryStoreReader
	indexes           []*Index
}

// OpenPack parses a complete DirectoryPack (header through check-info)
// from raw bytes, verifying its check-info digest.
func OpenPack(raw []byte) (*Pack, error) {
	header, err := jbkpack.DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if header.Magic != jbkpack.KindDirectory {
		return nil, fmt.Errorf("directory: expected directory pack magic, got %q", header.Magic)
	}
	if err := jbkpack.VerifyCheckInfo(raw, header.CheckInfoPos); err != nil {
		return nil, err
	}

	tailOffset := bases.ReadUintBytes(header.FreeData[0:8], 8)
	p := bases.NewParser(raw[:header.CheckInfoPos], bases.Offset(0))
	if err := p.SeekTo(int(tailOffset)); err != nil {
		return nil, fmt.Errorf("directory: tail offset %d invalid: %w", tailOffset, err)
	}

	valueStorePtrs, err := readPtrTable(p)
	if err != nil {
		return nil, err
	}
	entryStorePtrs, err := readPtrTable(p)
	if err != nil {
		return nil, err
	}
	indexCount, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	indexes := make([]*Index, indexCount)
	for i := range indexes {
		idx, err := DecodeIndex(p)
		if err != nil {
			return nil, err
		}
		indexes[i] = idx
	}

	valueReaders := make(map[int]any, len(valueStorePtrs))
	for i, ptr := range valueStorePtrs {
		if ptr.Size == 0 {
			continue
		}
		blob := raw[ptr.Offset : ptr.Offset+ptr.Size]
		r, err := openValueStore(blob)
		if err != nil {
			return nil, fmt.Errorf("directory: value store %d: %w", i, err)
		}
		valueReaders[i] = r
	}

	storesByID := make(map[uint8]any, len(valueReaders))
	for id, r := range valueReaders {
		storesByID[uint8(id)] = r
	}

	entryStores := make([]*EntryStoreReader, len(entryStorePtrs))
	for i, ptr := range entryStorePtrs {
		blob := raw[ptr.Offset : ptr.Offset+ptr.Size]
		es, err := NewEntryStoreReader(blob, storesByID)
		if err != nil {
			return nil, fmt.Errorf("directory: entry store %d: %w", i, err)
		}
		entryStores[i] = es
	}

	return &Pack{Header: header, valueStoreReaders: valueReaders, entryStores: entryStores, indexes: indexes}, nil
}

func readPtrTable(p *bases.Parser) ([]ptrEntry, error) {
	count, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]ptrEntry, count)
	for i := range out {
		off, err := p.ReadU64()
		if err != nil {
			return nil, err
		}
		size, err := p.ReadU64()
		if err != nil {
			return nil, err
		}
		out[i] = ptrEntry{Offset: off, Size: size}
	}
	return out, nil
}

func openValueStore(blob []byte) (any, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty value store blob")
	}
	switch blob[0] {
	case valuestore.KindPlain:
		return valuestore.NewPlainReader(blob[9:]), nil
	case valuestore.KindIndexed:
		return valuestore.NewIndexedReader(blob[1:])
	default:
		return nil, fmt.Errorf("unknown value store kind byte 0x%02x", blob[0])
	}
}

// EntryStore returns the i-th entry store reader in the pack.
func (pk *Pack) EntryStore(i int) (*EntryStoreReader, error) {
	if i < 0 || i >= len(pk.entryStores) {
		return nil, fmt.Errorf("directory: entry store index %d out of bounds of %d", i, len(pk.entryStores))
	}
	return pk.entryStores[i], nil
}

// Indexes returns every index declared in the pack.
func (pk *Pack) Indexes() []*Index {
	return pk.indexes
}

// IndexByName looks up a declared index by name.
func (pk *Pack) IndexByName(name string) (*Index, error) {
	for _, idx := range pk.indexes {
		if idx.Name == name {
			return idx, nil
		}
	}
	return nil, fmt.Errorf("directory: no index named %q", name)
}

// View binds idx to the entry store it names as StoreID, for use with
// Finder/IndexFinder.
func (pk *Pack) View(idx *Index) (*IndexView, error) {
	store, err := pk.EntryStore(int(idx.StoreID))
	if err != nil {
		return nil, fmt.Errorf("directory: index %q: %w", idx.Name, err)
	}
	return &IndexView{Index: idx, Store: store}, nil
}
