package creator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbkfmt/jubako/pkg/content"
	"github.com/jbkfmt/jubako/pkg/directory"
	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
)

func buildSample(t *testing.T, c *BasicCreator) {
	t.Helper()
	addr, err := c.AddContent([]byte("hello world"))
	require.NoError(t, err)

	schema := &directory.Schema{
		Common: []directory.PropertyDecl{
			{Name: "Body", Kind: directory.KindContentAddress},
		},
	}
	layout, err := schema.Freeze()
	require.NoError(t, err)
	esw := directory.NewEntryStoreWriter(layout, c.Directory.ValueStores())
	require.NoError(t, esw.AddRecord(0, map[string]any{"Body": addr}))
	c.Directory.AddEntryStore(esw)
}

func verifySample(t *testing.T, path string) {
	t.Helper()
	cont, err := jbkcontainer.Open(path)
	require.NoError(t, err)

	dirMM, err := cont.DirectoryPack()
	require.NoError(t, err)
	require.True(t, dirMM.IsFound())
	dir, _ := dirMM.Get()

	store, err := dir.EntryStore(0)
	require.NoError(t, err)
	require.Equal(t, 1, store.Count())
	rec, err := store.Record(0)
	require.NoError(t, err)
	addr, err := rec.ContentAddress("Body")
	require.NoError(t, err)

	blobMM, err := cont.GetBlob(addr)
	require.NoError(t, err)
	require.True(t, blobMM.IsFound())
	blob, _ := blobMM.Get()
	require.Equal(t, []byte("hello world"), blob)
}

func TestBasicCreatorOneFile(t *testing.T) {
	dir := t.TempDir()
	c := NewBasicCreator(dir, "test", ConcatOneFile, content.CompressionNone)
	buildSample(t, c)
	paths, err := c.Finalize()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	verifySample(t, paths[0])
}

func TestBasicCreatorTwoFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewBasicCreator(dir, "test", ConcatTwoFiles, content.CompressionZstd)
	buildSample(t, c)
	paths, err := c.Finalize()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	verifySample(t, filepath.Join(dir, "test.jbk"))
}

func TestBasicCreatorNoConcat(t *testing.T) {
	dir := t.TempDir()
	c := NewBasicCreator(dir, "test", ConcatNoConcat, content.CompressionLZ4)
	buildSample(t, c)
	paths, err := c.Finalize()
	require.NoError(t, err)
	require.Len(t, paths, 3)
	verifySample(t, filepath.Join(dir, "test.jbkm"))
}
