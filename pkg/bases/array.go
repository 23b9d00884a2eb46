package bases

import "fmt"

// Idx is a typed index into an ArrayReader[T].
type Idx[T any] uint32

// ArrayReader views a contiguous run of fixed-size T values in a region,
// indexed by Idx[T]. It only validates the index against a declared count;
// it does not interpret the bytes itself (that is Decode's job).
type ArrayReader[T any] struct {
	reader   *Reader
	elemSize int
	count    int
	decode   func(*Parser) (T, error)
}

// NewArrayReader builds an ArrayReader over r, which must cover exactly
// count*elemSize bytes (or more; trailing bytes are ignored).
func NewArrayReader[T any](r *Reader, count int, elemSize int, decode func(*Parser) (T, error)) *ArrayReader[T] {
	return &ArrayReader[T]{reader: r, elemSize: elemSize, count: count, decode: decode}
}

// Len reports the declared element count.
func (a *ArrayReader[T]) Len() int {
	return a.count
}

// Get decodes the element at idx.
func (a *ArrayReader[T]) Get(idx Idx[T]) (T, error) {
	var zero T
	if int(idx) >= a.count {
		return zero, fmt.Errorf("bases: index %d out of bounds of %d-element array", idx, a.count)
	}
	buf, err := a.reader.read(Size(int(idx)*a.elemSize), a.elemSize)
	if err != nil {
		return zero, err
	}
	return a.decode(NewParser(buf, a.reader.region.Begin.Add(Size(int(idx)*a.elemSize))))
}
