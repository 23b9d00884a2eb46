package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
)

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Verify the check-info digest of every pack reachable from a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(args[0])
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(path string) error {
	c, err := jbkcontainer.Open(path)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	fmt.Printf("manifest: ok (%d packs recorded)\n", len(c.Manifest.Packs))

	dir, err := c.DirectoryPack()
	if err != nil {
		return fmt.Errorf("check: directory pack: %w", err)
	}
	if !dir.IsFound() {
		fmt.Println("directory: MISSING")
	} else {
		fmt.Println("directory: ok")
	}

	for _, pi := range c.Manifest.ContentPackInfos() {
		cp, err := c.ContentPack(pi.PackID)
		if err != nil {
			return fmt.Errorf("check: content pack %d: %w", pi.PackID, err)
		}
		if !cp.IsFound() {
			fmt.Printf("content[%d]: MISSING\n", pi.PackID)
			continue
		}
		pack, _ := cp.Get()
		fmt.Printf("content[%d]: ok (%d blobs)\n", pi.PackID, pack.Count())
	}
	return nil
}
