package directory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jbkfmt/jubako/pkg/jbkpack"
)

// Scenario A (spec.md §8): a schema with two common properties and two
// variants, three entries, and a named index recovering all three.
func TestDirectoryPackScenarioA(t *testing.T) {
	schema := &Schema{
		Common: []PropertyDecl{
			{Name: "S", Kind: KindArray, ArrayInlineSize: 5, ArrayStoreKind: StoreNone},
			{Name: "N", Kind: KindUnsignedInt, IntWidth: 1},
		},
		Variants: []VariantDecl{
			{Name: "V0", Properties: []PropertyDecl{{Name: "C", Kind: KindContentAddress}}},
			{Name: "V1", Properties: []PropertyDecl{{Name: "M", Kind: KindUnsignedInt, IntWidth: 1}}},
		},
	}
	layout, err := schema.Freeze()
	require.NoError(t, err)
	require.Equal(t, 12, layout.EntrySize) // 1 (variant) + 6 ("S") + 1 ("N") + 4 (max(C,M))

	esw := NewEntryStoreWriter(layout, nil)
	require.NoError(t, esw.AddRecord(0, map[string]any{
		"S": []byte("Super"), "N": uint64(50), "C": jbkpack.ContentAddress{PackID: 1, ContentID: 0},
	}))
	require.NoError(t, esw.AddRecord(1, map[string]any{
		"S": []byte("Mega"), "N": uint64(42), "M": uint64(5),
	}))
	require.NoError(t, esw.AddRecord(1, map[string]any{
		"S": []byte("Hyper"), "N": uint64(45), "M": uint64(2),
	}))

	c := NewCreator(uuid.New())
	storeIdx := c.AddEntryStore(esw)
	c.AddIndex(&Index{
		Name:        "My own index",
		SortKeyProp: NoSortKey,
		StoreID:     uint8(storeIdx),
		EntryCount:  3,
		EntryOffset: 0,
	})

	raw, err := c.Finalize()
	require.NoError(t, err)

	pack, err := OpenPack(raw)
	require.NoError(t, err)

	idx, err := pack.IndexByName("My own index")
	require.NoError(t, err)
	view, err := pack.View(idx)
	require.NoError(t, err)
	require.Equal(t, 3, view.Len())

	rec0, err := view.At(0)
	require.NoError(t, err)
	require.Equal(t, uint8(0), rec0.VariantID())
	s0, err := rec0.Array("S")
	require.NoError(t, err)
	require.Equal(t, []byte("Super"), s0)
	n0, err := rec0.Uint("N")
	require.NoError(t, err)
	require.Equal(t, uint64(50), n0)
	c0, err := rec0.ContentAddress("C")
	require.NoError(t, err)
	require.Equal(t, jbkpack.ContentAddress{PackID: 1, ContentID: 0}, c0)

	rec1, err := view.At(1)
	require.NoError(t, err)
	require.Equal(t, uint8(1), rec1.VariantID())
	m1, err := rec1.Uint("M")
	require.NoError(t, err)
	require.Equal(t, uint64(5), m1)

	rec2, err := view.At(2)
	require.NoError(t, err)
	s2, err := rec2.Array("S")
	require.NoError(t, err)
	require.Equal(t, []byte("Hyper"), s2)
	m2, err := rec2.Uint("M")
	require.NoError(t, err)
	require.Equal(t, uint64(2), m2)

	store, err := pack.EntryStore(storeIdx)
	require.NoError(t, err)
	require.Equal(t, 3, store.Count())
	for i := 0; i < store.Count(); i++ {
		rec, err := store.Record(i)
		require.NoError(t, err)
		_ = rec
	}
}

func TestDirectoryPackNoVariants(t *testing.T) {
	schema := &Schema{
		Common: []PropertyDecl{
			{Name: "ID", Kind: KindUnsignedInt, IntWidth: 2},
		},
	}
	layout, err := schema.Freeze()
	require.NoError(t, err)
	require.False(t, layout.HasVariant)
	require.Equal(t, 2, layout.EntrySize)

	esw := NewEntryStoreWriter(layout, nil)
	require.NoError(t, esw.AddRecord(0, map[string]any{"ID": uint64(1000)}))

	c := NewCreator(uuid.New())
	c.AddEntryStore(esw)
	raw, err := c.Finalize()
	require.NoError(t, err)

	pack, err := OpenPack(raw)
	require.NoError(t, err)
	store, err := pack.EntryStore(0)
	require.NoError(t, err)
	rec, err := store.Record(0)
	require.NoError(t, err)
	v, err := rec.Uint("ID")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), v)
}
