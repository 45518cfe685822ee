package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	// RootCmd is the base command when called without any subcommands.
	RootCmd = &cobra.Command{
		Use:   "dframe",
		Short: "out-of-core row-sliced data frames",
		Long: fmt.Sprintf(`dframe (v%s)

Benchmarks row-sliced data frames kept in memory, in a local directory
or in an S3-compatible bucket, and manages the pages they leave behind.`, Version),
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dframe",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("dframe v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	setupStoreFlags(RootCmd)

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(benchCmd)
	RootCmd.AddCommand(pagesCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
