package valuestore

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/jbkfmt/jubako/pkg/bases"
)

// IndexedWriter deduplicates identical byte strings into stable ids. A
// 64-bit xxhash of each candidate pre-buckets the dedup map so repeated
// inserts of large values don't re-hash the full string on every probe.
type IndexedWriter struct {
	buckets map[uint64][]int // xxhash(value) -> indices into values with that hash
	values  [][]byte
}

// NewIndexedWriter returns an empty indexed value-store writer.
func NewIndexedWriter() *IndexedWriter {
	return &IndexedWriter{buckets: make(map[uint64][]int)}
}

// Add deduplicates b against previously-added values and returns its id.
// Three identical insertions of the same bytes return the same id and the
// store retains only one copy of the data.
func (w *IndexedWriter) Add(b []byte) uint64 {
	h := xxhash.Sum64(b)
	for _, idx := range w.buckets[h] {
		if string(w.values[idx]) == string(b) {
			return uint64(idx)
		}
	}
	idx := len(w.values)
	w.values = append(w.values, append([]byte(nil), b...))
	w.buckets[h] = append(w.buckets[h], idx)
	return uint64(idx)
}

// Count returns the number of distinct values inserted so far.
func (w *IndexedWriter) Count() int {
	return len(w.values)
}

// Finalize sorts the distinct values by byte content (producing a new id
// assignment), then emits: kind(1) + entry_count(8) + offset_size(1) +
// data_size(8) + (entry_count-1) cumulative offsets of width offset_size +
// concatenated data. The returned remap lets the caller translate ids
// handed out by Add into the finalized, sorted id space.
func (w *IndexedWriter) Finalize() (encoded []byte, remap []uint64) {
	order := make([]int, len(w.values))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return string(w.values[order[i]]) < string(w.values[order[j]])
	})

	remap = make([]uint64, len(w.values))
	sortedValues := make([][]byte, len(w.values))
	for newID, oldID := range order {
		remap[oldID] = uint64(newID)
		sortedValues[newID] = w.values[oldID]
	}

	var data []byte
	cumulative := make([]uint64, 0, len(sortedValues))
	for _, v := range sortedValues {
		cumulative = append(cumulative, uint64(len(data)))
		data = append(data, v...)
	}
	dataSize := uint64(len(data))
	offsetSize := bases.NeededBytes(dataSize)
	if offsetSize == 0 {
		offsetSize = 1
	}

	entryCount := len(sortedValues)
	header := make([]byte, 1+8+1+8)
	header[0] = KindIndexed
	putU64(header[1:9], uint64(entryCount))
	header[9] = byte(offsetSize)
	putU64(header[10:18], dataSize)

	offsets := make([]byte, 0, entryCount*offsetSize)
	for i := 1; i < entryCount; i++ {
		buf := make([]byte, offsetSize)
		bases.WriteUint(buf, cumulative[i], offsetSize)
		offsets = append(offsets, buf...)
	}

	encoded = append(encoded, header...)
	encoded = append(encoded, offsets...)
	encoded = append(encoded, data...)
	return encoded, remap
}

// IndexedReader resolves ids against a decoded indexed store body.
type IndexedReader struct {
	entryCount int
	offsetSize int
	dataSize   uint64
	offsets    []byte // (entryCount-1) cumulative offsets, offset_size bytes each
	data       []byte
}

// NewIndexedReader parses the store body that follows the 1-byte kind tag
// (entry_count, offset_size, data_size, offsets, data).
func NewIndexedReader(body []byte) (*IndexedReader, error) {
	if len(body) < 8+1+8 {
		return nil, fmt.Errorf("valuestore: indexed store header truncated")
	}
	entryCount := int(getU64(body[0:8]))
	offsetSize := int(body[8])
	dataSize := getU64(body[9:17])
	rest := body[17:]

	offsetsLen := 0
	if entryCount > 1 {
		offsetsLen = (entryCount - 1) * offsetSize
	}
	if len(rest) < offsetsLen+int(dataSize) {
		return nil, fmt.Errorf("valuestore: indexed store body truncated")
	}
	return &IndexedReader{
		entryCount: entryCount,
		offsetSize: offsetSize,
		dataSize:   dataSize,
		offsets:    rest[:offsetsLen],
		data:       rest[offsetsLen : offsetsLen+int(dataSize)],
	}, nil
}

// Count reports the number of distinct values in the store.
func (r *IndexedReader) Count() int {
	return r.entryCount
}

// Get resolves id to its byte range.
func (r *IndexedReader) Get(id uint64) ([]byte, error) {
	if id >= uint64(r.entryCount) {
		return nil, fmt.Errorf("valuestore: id %d out of bounds of %d-entry store", id, r.entryCount)
	}
	start := r.boundary(id)
	end := r.boundary(id + 1)
	return r.data[start:end], nil
}

func (r *IndexedReader) boundary(id uint64) uint64 {
	if id == 0 {
		return 0
	}
	if id == uint64(r.entryCount) {
		return r.dataSize
	}
	off := (id - 1) * uint64(r.offsetSize)
	return bases.ReadUintBytes(r.offsets[off:off+uint64(r.offsetSize)], r.offsetSize)
}
