// Package main implements the grfbuild CLI.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"grfbuild/internal/logging"
	"grfbuild/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "grfbuild",
	Short: "Assemble, compile and test OpenTTD NewGRF projects",
	Long: `grfbuild concatenates the .pnml fragments of a NewGRF source tree into a
single .nml file, optionally compiles it with nmlc and starts the game with the
result.`,
	PersistentPreRunE: applyGlobalFlags,
}

// main registers the subcommands and persistent flags and executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "only report errors")
	rootCmd.PersistentFlags().Bool("debug", false, "report every fragment decision")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func applyGlobalFlags(cmd *cobra.Command, _ []string) error {
	value, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	mode, err := readMode("--color", value)
	if err != nil {
		return err
	}
	color.NoColor = !enabled(mode, os.Stdout)
	_, err = verbosity(cmd)
	return err
}

func verbosity(cmd *cobra.Command) (logging.Verbosity, error) {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return "", err
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return "", err
	}
	return logging.FromFlags(quiet, debug)
}

// newLogger builds the stderr logger for the command's verbosity flags.
func newLogger(cmd *cobra.Command) (*log.Logger, error) {
	v, err := verbosity(cmd)
	if err != nil {
		return nil, err
	}
	return logging.New(cmd.ErrOrStderr(), v), nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
