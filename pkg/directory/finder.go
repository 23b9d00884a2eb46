package directory

// Comparator orders a caller-defined entry type S against a key of the
// same type, following the stdlib three-way convention: negative if the
// record at the probed position sorts before key, zero on match, positive
// after. It lets Finder binary-search a sorted index without knowing
// anything about S's internal shape.
type Comparator[S any] func(candidate S, key S) int

// Finder projects an EntryStore's raw Records back into a caller-defined
// entry type S. The caller supplies Decode once; Get/Iterate then deal
// entirely in S. Binary search is offered by IndexFinder.Find.
type Finder[S any] struct {
	Store  *EntryStoreReader
	Decode func(*Record) (S, error)
}

// NewFinder binds a Finder to an already-opened EntryStoreReader.
func NewFinder[S any](store *EntryStoreReader, decode func(*Record) (S, error)) *Finder[S] {
	return &Finder[S]{Store: store, Decode: decode}
}

// Get decodes the i-th record in the whole store (not relative to any
// index).
func (f *Finder[S]) Get(i int) (S, error) {
	var zero S
	rec, err := f.Store.Record(i)
	if err != nil {
		return zero, err
	}
	return f.Decode(rec)
}

// Len reports the total number of records in the store.
func (f *Finder[S]) Len() int {
	return f.Store.Count()
}

// Iterate decodes every record in the store in storage order.
func (f *Finder[S]) Iterate() ([]S, error) {
	out := make([]S, 0, f.Store.Count())
	for i := 0; i < f.Store.Count(); i++ {
		s, err := f.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// IndexFinder projects one IndexView's run through a Finder, adding
// index-relative access and (for sorted indexes) typed binary search.
type IndexFinder[S any] struct {
	View   *IndexView
	Finder *Finder[S]
}

// NewIndexFinder binds an IndexFinder to an index view and decode func.
func NewIndexFinder[S any](view *IndexView, decode func(*Record) (S, error)) *IndexFinder[S] {
	return &IndexFinder[S]{View: view, Finder: &Finder[S]{Store: view.Store, Decode: decode}}
}

// Len reports the number of entries in the index's run.
func (f *IndexFinder[S]) Len() int {
	return f.View.Len()
}

// At decodes the i-th entry of the index's run.
func (f *IndexFinder[S]) At(i int) (S, error) {
	var zero S
	rec, err := f.View.At(i)
	if err != nil {
		return zero, err
	}
	return f.Finder.Decode(rec)
}

// Iterate decodes every entry of the index's run in order.
func (f *IndexFinder[S]) Iterate() ([]S, error) {
	out := make([]S, 0, f.View.Len())
	for i := 0; i < f.View.Len(); i++ {
		s, err := f.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Find binary-searches the index's run using cmp, requiring the run to
// already be sorted consistently with cmp. It returns the matching entry,
// its position within the run, and ok=false if no entry compares equal.
func (f *IndexFinder[S]) Find(key S, cmp Comparator[S]) (result S, pos int, ok bool, err error) {
	n := f.View.Len()
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		s, derr := f.At(mid)
		if derr != nil {
			return result, -1, false, derr
		}
		if cmp(s, key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= n {
		return result, -1, false, nil
	}
	s, derr := f.At(lo)
	if derr != nil {
		return result, -1, false, derr
	}
	if cmp(s, key) != 0 {
		return result, -1, false, nil
	}
	return s, lo, true, nil
}
