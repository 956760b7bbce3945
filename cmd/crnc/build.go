package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile a model into a solver executable",
	Long: `Sanitizes the model, generates its template definitions, and drives the
native toolchain to produce a solver executable. The workspace is always
retained so the executable survives the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)

		opts := compileOptionsFromFlags(cmd)
		opts.retain = true

		c, err := compile(cmd.Context(), logger, opts)
		if err != nil {
			return err
		}
		defer closeCache(c.cache)

		fmt.Println(c.executable)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addCompileFlags(buildCmd)
}
