package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var scenarioBBlobs = [][]byte{
	{0x11, 0x12, 0x13, 0x14, 0x15},
	{0x21, 0x22, 0x23},
	{0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37},
}

// Scenario B (spec.md §8): one raw cluster with three blobs of sizes 5, 3, 7.
func TestClusterScenarioBRaw(t *testing.T) {
	w := NewClusterWriter()
	for _, b := range scenarioBBlobs {
		_, err := w.AddBlob(b)
		require.NoError(t, err)
	}
	raw, err := w.Finalize(CompressionNone)
	require.NoError(t, err)
	require.Equal(t, 30, len(raw)) // header(12) + data_size(1) + offsets(2) + data(15)
	require.EqualValues(t, CompressionNone, raw[0])

	r, err := NewClusterReader(raw)
	require.NoError(t, err)
	require.Equal(t, 3, r.Count())
	for i, want := range scenarioBBlobs {
		got, err := r.Blob(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// Scenario C (spec.md §8): same blobs, LZ4-compressed; every blob still
// decodes byte-for-byte. The exact compressed size depends on the LZ4
// library's output and isn't asserted here.
func TestClusterScenarioCLZ4(t *testing.T) {
	w := NewClusterWriter()
	for _, b := range scenarioBBlobs {
		_, err := w.AddBlob(b)
		require.NoError(t, err)
	}
	raw, err := w.Finalize(CompressionLZ4)
	require.NoError(t, err)
	require.EqualValues(t, CompressionLZ4, raw[0])

	r, err := NewClusterReader(raw)
	require.NoError(t, err)
	require.Equal(t, 3, r.Count())
	for i, want := range scenarioBBlobs {
		got, err := r.Blob(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestClusterZstdRoundTrip(t *testing.T) {
	w := NewClusterWriter()
	for _, b := range scenarioBBlobs {
		_, err := w.AddBlob(b)
		require.NoError(t, err)
	}
	raw, err := w.Finalize(CompressionZstd)
	require.NoError(t, err)

	r, err := NewClusterReader(raw)
	require.NoError(t, err)
	for i, want := range scenarioBBlobs {
		got, err := r.Blob(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestClusterCapacity(t *testing.T) {
	w := NewClusterWriter()
	for i := 0; i < MaxBlobsPerCluster; i++ {
		_, err := w.AddBlob([]byte{byte(i)})
		require.NoError(t, err)
	}
	_, err := w.AddBlob([]byte{0})
	require.Error(t, err)
}
