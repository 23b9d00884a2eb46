package manifest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

func TestPackInfoEncodeDecodeOffset(t *testing.T) {
	pi := &PackInfo{
		UUID:                 uuid.New(),
		PackID:               0,
		PackKind:             jbkpack.KindDirectory,
		DeclaredSize:         1234,
		DeclaredCheckInfoPos: 1200,
		Location:             PackLocation{Kind: LocationOffset, Offset: 64},
	}
	enc, err := pi.Encode()
	require.NoError(t, err)
	require.Len(t, enc, RecordSize())

	got, err := DecodePackInfo(enc)
	require.NoError(t, err)
	require.Equal(t, pi.UUID, got.UUID)
	require.Equal(t, pi.PackKind, got.PackKind)
	require.Equal(t, pi.DeclaredSize, got.DeclaredSize)
	require.Equal(t, pi.Location, got.Location)
}

func TestPackInfoEncodeDecodePath(t *testing.T) {
	pi := &PackInfo{
		UUID:     uuid.New(),
		PackID:   1,
		PackKind: jbkpack.KindContent,
		Location: PackLocation{Kind: LocationPath, Path: "sibling.jbkc"},
	}
	enc, err := pi.Encode()
	require.NoError(t, err)

	got, err := DecodePackInfo(enc)
	require.NoError(t, err)
	require.Equal(t, pi.Location, got.Location)
}

func TestPackInfoPathTooLong(t *testing.T) {
	pi := &PackInfo{
		Location: PackLocation{Kind: LocationPath, Path: string(make([]byte, MaxPathLen+1))},
	}
	_, err := pi.Encode()
	require.Error(t, err)
}

func TestManifestPackRoundTrip(t *testing.T) {
	w := NewWriter(uuid.New())
	dirID, contentID := uuid.New(), uuid.New()
	w.AddPack(&PackInfo{
		UUID: dirID, PackID: 0, PackKind: jbkpack.KindDirectory,
		DeclaredSize: 100, Location: PackLocation{Kind: LocationOffset, Offset: 64},
	})
	w.AddPack(&PackInfo{
		UUID: contentID, PackID: 1, PackKind: jbkpack.KindContent,
		DeclaredSize: 200, Location: PackLocation{Kind: LocationOffset, Offset: 164},
	})

	raw, err := w.Finalize()
	require.NoError(t, err)

	pack, err := OpenPack(raw)
	require.NoError(t, err)
	require.Len(t, pack.Packs, 2)

	dirInfo, err := pack.DirectoryPackInfo()
	require.NoError(t, err)
	require.Equal(t, dirID, dirInfo.UUID)

	contentInfos := pack.ContentPackInfos()
	require.Len(t, contentInfos, 1)
	require.Equal(t, contentID, contentInfos[0].UUID)
}

func TestSetPackLocation(t *testing.T) {
	w := NewWriter(uuid.New())
	contentID := uuid.New()
	w.AddPack(&PackInfo{
		UUID: uuid.New(), PackID: 0, PackKind: jbkpack.KindDirectory,
		Location: PackLocation{Kind: LocationOffset, Offset: 64},
	})
	w.AddPack(&PackInfo{
		UUID: contentID, PackID: 1, PackKind: jbkpack.KindContent,
		Location: PackLocation{Kind: LocationOffset, Offset: 164},
	})
	raw, err := w.Finalize()
	require.NoError(t, err)

	newLoc := PackLocation{Kind: LocationPath, Path: "moved.jbkc"}
	require.NoError(t, SetPackLocation(raw, contentID, newLoc))

	pack, err := OpenPack(raw)
	require.NoError(t, err)
	var found *PackInfo
	for _, pi := range pack.Packs {
		if pi.UUID == contentID {
			found = pi
		}
	}
	require.NotNil(t, found)
	require.Equal(t, newLoc, found.Location)

	require.NoError(t, jbkpack.VerifyCheckInfo(raw, pack.Header.CheckInfoPos))
}

func TestManifestPackTruncatedCountCheck(t *testing.T) {
	w := NewWriter(uuid.New())
	w.AddPack(&PackInfo{UUID: uuid.New(), PackID: 0, PackKind: jbkpack.KindDirectory})
	raw, err := w.Finalize()
	require.NoError(t, err)

	// Corrupt the trailing pack_count_check field just before check-info.
	header, err := jbkpack.DecodeHeader(raw)
	require.NoError(t, err)
	checkPos := int(header.CheckInfoPos)
	bases.WriteUint(raw[checkPos-4:checkPos], 99, 4)

	_, err = OpenPack(raw)
	require.Error(t, err)
}
