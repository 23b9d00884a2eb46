package jbkcontainer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbkfmt/jubako/pkg/content"
	"github.com/jbkfmt/jubako/pkg/creator"
	"github.com/jbkfmt/jubako/pkg/directory"
	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
)

func buildNoConcatContainer(t *testing.T) (dir string, manifestPath string) {
	t.Helper()
	dir = t.TempDir()
	c := creator.NewBasicCreator(dir, "demo", creator.ConcatNoConcat, content.CompressionNone)
	addr, err := c.AddContent([]byte("payload"))
	require.NoError(t, err)

	schema := &directory.Schema{
		Common: []directory.PropertyDecl{{Name: "Body", Kind: directory.KindContentAddress}},
	}
	layout, err := schema.Freeze()
	require.NoError(t, err)
	esw := directory.NewEntryStoreWriter(layout, c.Directory.ValueStores())
	require.NoError(t, esw.AddRecord(0, map[string]any{"Body": addr}))
	c.Directory.AddEntryStore(esw)

	paths, err := c.Finalize()
	require.NoError(t, err)
	return dir, paths[0]
}

// Scenario E (spec.md §8): opening still succeeds with a sibling pack
// missing; only the operation touching that pack reports MissingPack.
// Restoring the sibling makes the same call succeed, without reopening.
func TestContainerMissingSiblingThenRestored(t *testing.T) {
	dir, manifestPath := buildNoConcatContainer(t)
	contentPath := filepath.Join(dir, "demo.jbkc")
	movedPath := filepath.Join(dir, "demo.jbkc.moved")

	require.NoError(t, os.Rename(contentPath, movedPath))

	cont, err := jbkcontainer.Open(manifestPath)
	require.NoError(t, err)

	dirMM, err := cont.DirectoryPack()
	require.NoError(t, err)
	require.True(t, dirMM.IsFound())
	dpack, _ := dirMM.Get()
	store, err := dpack.EntryStore(0)
	require.NoError(t, err)
	rec, err := store.Record(0)
	require.NoError(t, err)
	addr, err := rec.ContentAddress("Body")
	require.NoError(t, err)

	blobMM, err := cont.GetBlob(addr)
	require.NoError(t, err)
	require.False(t, blobMM.IsFound())
	_, ok := blobMM.Get()
	require.False(t, ok)

	require.NoError(t, os.Rename(movedPath, contentPath))

	blobMM2, err := cont.GetBlob(addr)
	require.NoError(t, err)
	require.True(t, blobMM2.IsFound())
	got, _ := blobMM2.Get()
	require.Equal(t, []byte("payload"), got)
}

func TestContainerCheckInfoVerifiedOnOpen(t *testing.T) {
	_, manifestPath := buildNoConcatContainer(t)
	raw, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(manifestPath, raw, 0o644))

	_, err = jbkcontainer.Open(manifestPath)
	require.Error(t, err)
}
