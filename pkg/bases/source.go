package bases

import (
	"fmt"
	"os"
)

// Source is an opaque byte provider. It never exposes its own boundaries
// beyond Size; a Reader borrows a Region over it.
type Source interface {
	ReadAt(p []byte, off Offset) (int, error)
	Size() Size
}

// fileSource is a Source backed by an open file.
type fileSource struct {
	f *os.File
}

// NewFileSource wraps f. All reads are ReadAt-based and do not move the
// file's cursor.
func NewFileSource(f *os.File) (Source, error) {
	if _, err := f.Stat(); err != nil {
		return nil, fmt.Errorf("bases: stat source file: %w", err)
	}
	return &fileSource{f: f}, nil
}

func (s *fileSource) ReadAt(p []byte, off Offset) (int, error) {
	return s.f.ReadAt(p, int64(off))
}

func (s *fileSource) Size() Size {
	st, err := s.f.Stat()
	if err != nil {
		return 0
	}
	return Size(st.Size())
}

// memorySource is a Source backed by an in-memory byte slice, e.g. a
// memory-mapped file or a buffer fully read into RAM.
type memorySource struct {
	data []byte
}

// NewMemorySource wraps data as a Source. The caller retains ownership;
// data must not be mutated afterwards.
func NewMemorySource(data []byte) Source {
	return &memorySource{data: data}
}

func (s *memorySource) ReadAt(p []byte, off Offset) (int, error) {
	if uint64(off) > uint64(len(s.data)) {
		return 0, fmt.Errorf("bases: read at %s past end of %d-byte source", off, len(s.data))
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, fmt.Errorf("bases: short read at %s: wanted %d, got %d", off, len(p), n)
	}
	return n, nil
}

func (s *memorySource) Size() Size {
	return Size(len(s.data))
}

// Bytes returns the full backing slice for zero-copy access. Only valid
// for sources created with NewMemorySource.
func (s *memorySource) Bytes() []byte {
	return s.data
}

// AsMemory returns the backing slice of a memory-resident Source, and true
// if src supports zero-copy access.
func AsMemory(src Source) ([]byte, bool) {
	if m, ok := src.(*memorySource); ok {
		return m.Bytes(), true
	}
	return nil, false
}
