package cmd

import (
	"os"

	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/outwriter"
	"github.com/spf13/cobra"
)

// flagsCmd groups the flag reference commands.
var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Inspect the flags the pipeline attaches to stop events",
	Long: `List the flag reference table or look a flag up by name.

The flags table is created from the built-in enumeration when it is missing.

Examples:
  pipeline flags list
  pipeline flags lookup abnormal_dwell`,
}

// flagsListCmd lists all flags.
var flagsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List every flag",
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, _ []string) {
		flags, err := core.NewFlagCatalog(hiveStore()).All(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to list flags", err)
		}
		if err := outwriter.NewOutWriter(os.Stdout).WriteFlags(flags); err != nil {
			contract.LogFatal("Failed to print flags", err)
		}
	},
}

// flagsLookupCmd resolves a flag name to its id.
var flagsLookupCmd = &cobra.Command{
	Use:     "lookup <name>",
	Short:   "Look up a flag id by name (case-insensitive)",
	Args:    cobra.ExactArgs(1),
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, args []string) {
		flag, err := core.NewFlagCatalog(hiveStore()).Lookup(rootCtx, args[0])
		if err != nil {
			contract.LogFatal("Failed to look up flag", err)
		}
		if err := outwriter.NewOutWriter(os.Stdout).WriteFlag(flag); err != nil {
			contract.LogFatal("Failed to print flag", err)
		}
	},
}
