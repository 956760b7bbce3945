package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bionetgo/crnc/internal/build"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the host for the native toolchain",
	Long:  `Probes for the external tools a build requires (compiler and make) and reports any that are missing.`,
	Run: func(cmd *cobra.Command, args []string) {
		missing := build.MissingDependencies()
		if len(missing) == 0 {
			fmt.Println("Toolchain complete.")
			return
		}
		for _, tool := range missing {
			fmt.Println("missing:", tool)
		}
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
