package main

import (
	"github.com/spf13/cobra"

	"github.com/jbkfmt/jubako/pkg/jubakoconfig"
)

var (
	verbose bool
	cfg     *jubakoconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "jubako",
	Short: "Read, verify and build Jubako container files",
	Long: `jubako is a command-line tool for working with Jubako containers: a
manifest pack locating a directory pack and one or more content packs,
optionally bundled into a single file or split across several.

Commands:
  check    Verify every pack's check-info digest
  concat   Repack a container into a different ConcatMode layout
  locate   Show or update where a pack's data lives
  explore  Walk a directory pack's indexes and entries`,
	Version: "0.1.0-dev",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := jubakoconfig.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
