package directory

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

// NoSortKey marks an Index that carries no sort-key property and therefore
// supports only linear iteration, never binary search.
const NoSortKey = 0xFF

// Index is a named handle over a contiguous run of an EntryStore's
// records: a human-facing name, an extra ContentAddress the embedder may
// attach (e.g. a thumbnail or a schema description blob), which property
// (if any) the run is sorted on, which entry store holds the records, and
// the run's bounds within it.
type Index struct {
	Name         string
	ExtraData    jbkpack.ContentAddress
	SortKeyProp  uint8 // property index within the layout's common properties, or NoSortKey
	StoreID      uint8
	EntryCount   uint32
	EntryOffset  uint32
}

// Encode serializes one index_ptrs record: name (pstring) + extra_data(4)
// + sort_key_prop(1) + store_id(1) + entry_count(4) + entry_offset(4).
func (idx *Index) Encode() ([]byte, error) {
	if len(idx.Name) > 255 {
		return nil, fmt.Errorf("directory: index name %q exceeds 255 bytes", idx.Name)
	}
	extra, err := idx.ExtraData.Encode()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+len(idx.Name)+4+1+1+4+4)
	buf = append(buf, byte(len(idx.Name)))
	buf = append(buf, idx.Name...)
	buf = append(buf, extra[:]...)
	buf = append(buf, idx.SortKeyProp, idx.StoreID)
	tmp := make([]byte, 4)
	bases.WriteUint(tmp, uint64(idx.EntryCount), 4)
	buf = append(buf, tmp...)
	bases.WriteUint(tmp, uint64(idx.EntryOffset), 4)
	buf = append(buf, tmp...)
	return buf, nil
}

// DecodeIndex parses one index_ptrs record starting at the parser's
// current position.
func DecodeIndex(p *bases.Parser) (*Index, error) {
	name, err := p.ReadPString()
	if err != nil {
		return nil, err
	}
	extraBuf, err := p.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	extra, err := jbkpack.DecodeContentAddress(extraBuf)
	if err != nil {
		return nil, err
	}
	sortKeyProp, err := p.ReadU8()
	if err != nil {
		return nil, err
	}
	storeID, err := p.ReadU8()
	if err != nil {
		return nil, err
	}
	entryCount, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	entryOffset, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	return &Index{
		Name:        name,
		ExtraData:   extra,
		SortKeyProp: sortKeyProp,
		StoreID:     storeID,
		EntryCount:  entryCount,
		EntryOffset: entryOffset,
	}, nil
}

// IndexView binds an Index to the EntryStoreReader it points into,
// offering iteration and (when sorted) binary search over its run.
type IndexView struct {
	Index *Index
	Store *EntryStoreReader
}

// Len reports the number of records in the index's run.
func (v *IndexView) Len() int {
	return int(v.Index.EntryCount)
}

// At returns the i-th record of the run (0-based, relative to EntryOffset).
func (v *IndexView) At(i int) (*Record, error) {
	if i < 0 || i >= int(v.Index.EntryCount) {
		return nil, fmt.Errorf("directory: index %q: position %d out of bounds of %d", v.Index.Name, i, v.Index.EntryCount)
	}
	return v.Store.Record(int(v.Index.EntryOffset) + i)
}

// SortKeyName resolves the sort-key property index against the store's
// layout, returning the property name, or "" if the index is unsorted.
func (v *IndexView) SortKeyName() string {
	if v.Index.SortKeyProp == NoSortKey {
		return ""
	}
	common := v.Store.Layout.Common
	if int(v.Index.SortKeyProp) >= len(common) {
		return ""
	}
	return common[v.Index.SortKeyProp].Name
}

// Find performs a binary search over a sorted run, comparing each
// candidate record's sort-key Array property against key using
// bytes.Compare. Calling Find on an unsorted index returns an error.
func (v *IndexView) Find(key []byte) (*Record, int, error) {
	name := v.SortKeyName()
	if name == "" {
		return nil, -1, fmt.Errorf("directory: index %q has no sort key", v.Index.Name)
	}
	n := int(v.Index.EntryCount)
	var searchErr error
	i := sort.Search(n, func(i int) bool {
		rec, err := v.At(i)
		if err != nil {
			searchErr = err
			return true
		}
		b, err := rec.Array(name)
		if err != nil {
			searchErr = err
			return true
		}
		return bytes.Compare(b, key) >= 0
	})
	if searchErr != nil {
		return nil, -1, searchErr
	}
	if i >= n {
		return nil, -1, nil
	}
	rec, err := v.At(i)
	if err != nil {
		return nil, -1, err
	}
	b, err := rec.Array(name)
	if err != nil {
		return nil, -1, err
	}
	if !bytes.Equal(b, key) {
		return nil, -1, nil
	}
	return rec, i, nil
}
