package content

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContentPackRoundTrip(t *testing.T) {
	w := NewWriter(uuid.New(), CompressionNone)
	var ids []uint32
	for _, b := range scenarioBBlobs {
		id, err := w.AddContent(b)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	raw, err := w.Finalize()
	require.NoError(t, err)

	pack, err := OpenPack(raw)
	require.NoError(t, err)
	require.Equal(t, 3, pack.Count())
	for i, id := range ids {
		got, err := pack.Get(id)
		require.NoError(t, err)
		require.Equal(t, scenarioBBlobs[i], got)
	}
}

func TestContentPackRollsOverAtClusterCapacity(t *testing.T) {
	w := NewWriter(uuid.New(), CompressionNone)
	total := MaxBlobsPerCluster + 5
	ids := make([]uint32, total)
	for i := 0; i < total; i++ {
		id, err := w.AddContent([]byte{byte(i), byte(i >> 8)})
		require.NoError(t, err)
		ids[i] = id
	}
	raw, err := w.Finalize()
	require.NoError(t, err)

	pack, err := OpenPack(raw)
	require.NoError(t, err)
	require.Equal(t, total, pack.Count())

	cIdx, bIdx := unpackContentID(ids[MaxBlobsPerCluster])
	require.Equal(t, 1, cIdx)
	require.Equal(t, 0, bIdx)

	got, err := pack.Get(ids[MaxBlobsPerCluster])
	require.NoError(t, err)
	require.Equal(t, []byte{byte(MaxBlobsPerCluster), byte(MaxBlobsPerCluster >> 8)}, got)
}

func TestPackContentIDCapacity(t *testing.T) {
	_, err := packContentID(MaxClustersPerPack, 0)
	require.Error(t, err)
	_, err = packContentID(0, MaxBlobsPerCluster)
	require.Error(t, err)
}
