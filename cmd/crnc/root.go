package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bionetgo/crnc/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "crnc",
	Short: "crnc compiles reaction-network models into native simulators",
	Long: `crnc takes a symbolic chemical reaction network, generates native solver
source for it, compiles a solver executable and runs it under supervision,
decoding the raw output into trajectory results.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log verbosity: info, debug, warn, error")
}

// newLogger builds the command's logger from the persistent log-level flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.New(logging.ParseLevel(level))
}
