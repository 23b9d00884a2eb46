package bases

import "fmt"

// Region is a half-open byte interval [Begin, End) over a Source.
type Region struct {
	Begin Offset
	End   Offset
}

// NewRegion builds the region [begin, begin+size).
func NewRegion(begin Offset, size Size) Region {
	return Region{Begin: begin, End: begin.Add(size)}
}

// Size reports the region's length in bytes.
func (r Region) Size() Size {
	return r.End.Sub(r.Begin)
}

// Contains reports whether sub lies entirely within r.
func (r Region) Contains(sub Region) bool {
	return sub.Begin >= r.Begin && sub.End <= r.End
}

// Sub carves out a child region [r.Begin+begin, r.Begin+begin+size), begin
// being relative to r.Begin. It never widens the parent: a child that would
// extend past r.End is an error rather than silently clamped.
func (r Region) Sub(begin Size, size Size) (Region, error) {
	child := NewRegion(r.Begin.Add(begin), size)
	if !r.Contains(child) {
		return Region{}, fmt.Errorf("bases: region [%s,%s) out of bounds of parent [%s,%s)",
			child.Begin, child.End, r.Begin, r.End)
	}
	return child, nil
}
