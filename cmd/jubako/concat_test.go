package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbkfmt/jubako/pkg/content"
	"github.com/jbkfmt/jubako/pkg/creator"
	"github.com/jbkfmt/jubako/pkg/directory"
	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
)

// Scenario D (spec.md §8): a NoConcat container (three files) repacked with
// concat into a single file yields a reader with identical entries and
// blobs.
func TestConcatNoConcatToOneFile(t *testing.T) {
	srcDir := t.TempDir()
	c := creator.NewBasicCreator(srcDir, "src", creator.ConcatNoConcat, content.CompressionNone)
	addrA, err := c.AddContent([]byte("alpha"))
	require.NoError(t, err)
	addrB, err := c.AddContent([]byte("bravo"))
	require.NoError(t, err)

	schema := &directory.Schema{
		Common: []directory.PropertyDecl{{Name: "Body", Kind: directory.KindContentAddress}},
	}
	layout, err := schema.Freeze()
	require.NoError(t, err)
	esw := directory.NewEntryStoreWriter(layout, c.Directory.ValueStores())
	require.NoError(t, esw.AddRecord(0, map[string]any{"Body": addrA}))
	require.NoError(t, esw.AddRecord(0, map[string]any{"Body": addrB}))
	c.Directory.AddEntryStore(esw)

	srcPaths, err := c.Finalize()
	require.NoError(t, err)
	require.Len(t, srcPaths, 3)
	manifestPath := filepath.Join(srcDir, "src.jbkm")

	outDir := t.TempDir()
	require.NoError(t, runConcat(manifestPath, filepath.Join(outDir, "out"), creator.ConcatOneFile))

	cont, err := jbkcontainer.Open(filepath.Join(outDir, "out.jbk"))
	require.NoError(t, err)

	dirMM, err := cont.DirectoryPack()
	require.NoError(t, err)
	require.True(t, dirMM.IsFound())
	dpack, _ := dirMM.Get()

	store, err := dpack.EntryStore(0)
	require.NoError(t, err)
	require.Equal(t, 2, store.Count())

	want := [][]byte{[]byte("alpha"), []byte("bravo")}
	for i, exp := range want {
		rec, err := store.Record(i)
		require.NoError(t, err)
		addr, err := rec.ContentAddress("Body")
		require.NoError(t, err)
		blobMM, err := cont.GetBlob(addr)
		require.NoError(t, err)
		require.True(t, blobMM.IsFound())
		got, _ := blobMM.Get()
		require.Equal(t, exp, got)
	}
}
