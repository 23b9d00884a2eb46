// Package valuestore implements the two ValueStore kinds used to hold
// variable-length payloads referenced from directory-pack entries: a plain
// byte-blob store addressed by (offset,size), and a deduplicating indexed
// store addressed by id.
package valuestore

import "fmt"

// KindPlain and KindIndexed are the on-disk value-store kind bytes.
const (
	KindPlain   uint8 = 0
	KindIndexed uint8 = 1
)

// PlainWriter accumulates arbitrary byte blobs during creation and hands
// back an (offset, size) handle for each.
type PlainWriter struct {
	data []byte
}

// NewPlainWriter returns an empty plain value-store writer.
func NewPlainWriter() *PlainWriter {
	return &PlainWriter{}
}

// Add appends b and returns its (offset, size) within the store's raw
// data region (not counting the store header).
func (w *PlainWriter) Add(b []byte) (offset uint64, size uint64) {
	offset = uint64(len(w.data))
	w.data = append(w.data, b...)
	size = uint64(len(b))
	return
}

// Size reports the accumulated raw data size so far.
func (w *PlainWriter) Size() uint64 {
	return uint64(len(w.data))
}

// Finalize emits the on-disk store: kind(1) + size(8) + raw data.
func (w *PlainWriter) Finalize() []byte {
	out := make([]byte, 9+len(w.data))
	out[0] = KindPlain
	putU64(out[1:9], uint64(len(w.data)))
	copy(out[9:], w.data)
	return out
}

// PlainReader resolves (offset,size) handles against a decoded store body.
type PlainReader struct {
	data []byte
}

// NewPlainReader wraps the store's raw data region (the bytes after the
// 9-byte kind+size header).
func NewPlainReader(data []byte) *PlainReader {
	return &PlainReader{data: data}
}

// Get returns the byte range [offset, offset+size).
func (r *PlainReader) Get(offset, size uint64) ([]byte, error) {
	if offset+size > uint64(len(r.data)) {
		return nil, fmt.Errorf("valuestore: plain range [%d,%d) out of bounds of %d-byte store", offset, offset+size, len(r.data))
	}
	return r.data[offset : offset+size], nil
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

func getU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = (v << 8) | uint64(b[i])
	}
	return v
}
