package valuestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario F (spec.md §8): inserting the same bytes three times into an
// indexed store yields one data copy and three ids that resolve to it.
func TestIndexedWriterDeduplicates(t *testing.T) {
	w := NewIndexedWriter()
	id1 := w.Add([]byte("hello"))
	id2 := w.Add([]byte("hello"))
	id3 := w.Add([]byte("hello"))

	require.Equal(t, id1, id2)
	require.Equal(t, id2, id3)
	require.Equal(t, 1, w.Count())

	encoded, remap := w.Finalize()
	require.Equal(t, KindIndexed, encoded[0])

	r, err := NewIndexedReader(encoded[1:])
	require.NoError(t, err)
	require.Equal(t, 1, r.Count())

	got, err := r.Get(remap[id1])
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestIndexedWriterRoundTripMultipleValues(t *testing.T) {
	w := NewIndexedWriter()
	values := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma"), []byte("alpha"), []byte("")}
	ids := make([]uint64, len(values))
	for i, v := range values {
		ids[i] = w.Add(v)
	}
	require.Equal(t, ids[0], ids[3]) // "alpha" deduped

	encoded, remap := w.Finalize()
	r, err := NewIndexedReader(encoded[1:])
	require.NoError(t, err)

	for i, v := range values {
		got, err := r.Get(remap[ids[i]])
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestPlainWriterReaderRoundTrip(t *testing.T) {
	w := NewPlainWriter()
	off1, size1 := w.Add([]byte("Super"))
	off2, size2 := w.Add([]byte("Mega"))

	encoded := w.Finalize()
	require.Equal(t, KindPlain, encoded[0])

	r := NewPlainReader(encoded[9:])
	got1, err := r.Get(off1, size1)
	require.NoError(t, err)
	require.Equal(t, []byte("Super"), got1)

	got2, err := r.Get(off2, size2)
	require.NoError(t, err)
	require.Equal(t, []byte("Mega"), got2)
}
