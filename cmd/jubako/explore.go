package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbkfmt/jubako/pkg/directory"
	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
)

var exploreIndexName string

var exploreCmd = &cobra.Command{
	Use:   "explore <path>",
	Short: "Walk a directory pack's indexes and entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExplore(args[0], exploreIndexName)
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().StringVar(&exploreIndexName, "index", "", "dump every record of the named index instead of just listing indexes")
}

func runExplore(path, indexName string) error {
	c, err := jbkcontainer.Open(path)
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	dirMM, err := c.DirectoryPack()
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	if !dirMM.IsFound() {
		return fmt.Errorf("explore: directory pack is missing")
	}
	dir, _ := dirMM.Get()

	if indexName == "" {
		for _, idx := range dir.Indexes() {
			sortedBy := "unsorted"
			if idx.SortKeyProp != directory.NoSortKey {
				sortedBy = fmt.Sprintf("sorted on property %d", idx.SortKeyProp)
			}
			fmt.Printf("%q: %d entries from offset %d in entry store %d (%s)\n",
				idx.Name, idx.EntryCount, idx.EntryOffset, idx.StoreID, sortedBy)
		}
		return nil
	}

	idx, err := dir.IndexByName(indexName)
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	view, err := dir.View(idx)
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	for i := 0; i < view.Len(); i++ {
		rec, err := view.At(i)
		if err != nil {
			return fmt.Errorf("explore: record %d: %w", i, err)
		}
		fmt.Printf("[%d] %s\n", i, describeRecord(view.Store.Layout, rec))
	}
	return nil
}

// describeRecord renders every common and variant-specific property of rec
// as "name=value", skipping padding, without assuming a fixed schema.
func describeRecord(layout *directory.Layout, rec *directory.Record) string {
	props, err := layout.VariantProperties(rec.VariantID())
	if err != nil {
		return fmt.Sprintf("<error resolving variant %d: %v>", rec.VariantID(), err)
	}
	out := ""
	if layout.HasVariant {
		out += fmt.Sprintf("variant=%s ", layout.VariantIDs[rec.VariantID()])
	}
	for _, p := range props {
		if p.Kind == directory.KindPadding {
			continue
		}
		out += fmt.Sprintf("%s=%s ", p.Name, describeValue(rec, p))
	}
	return out
}

func describeValue(rec *directory.Record, p directory.Property) string {
	switch p.Kind {
	case directory.KindUnsignedInt:
		v, err := rec.Uint(p.Name)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("%d", v)
	case directory.KindSignedInt:
		v, err := rec.Int(p.Name)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("%d", v)
	case directory.KindContentAddress:
		v, err := rec.ContentAddress(p.Name)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("content(pack=%d,id=%d)", v.PackID, v.ContentID)
	case directory.KindArray:
		v, err := rec.Array(p.Name)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("%q", v)
	case directory.KindDeportedUnsignedInt:
		v, err := rec.DeportedUint(p.Name)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("%d", v)
	case directory.KindDeportedSignedInt:
		v, err := rec.DeportedInt(p.Name)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return fmt.Sprintf("%d", v)
	default:
		return "?"
	}
}
