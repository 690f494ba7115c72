package main

import (
	"os"

	"github.com/spf13/cobra"

	"rill/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rill",
	Short: "Rill semantic checker and toolchain backend",
	Long:  `Rill checks frontend-produced AST documents: name resolution, type checking, abilities, generics and match analysis`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show per unit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
