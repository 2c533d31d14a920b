// Package main is the entry point for the stream router service: a
// cobra root command wiring the serve, migrate, and validate
// subcommands. Grounded on the teacher's migrations.CLI
// (internal/infrastructure/migrations/cli.go) for the
// root-command-with-subcommands shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags; "dev" otherwise.
var version = "dev"

var cfgFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "streamrouter",
		Short:   "Stream router: routes log messages to streams by rule conjunction",
		Long:    "streamrouter compiles a catalogue of streams and stream rules into an in-memory matching engine and routes inbound log messages to every stream whose rules all match.",
		Version: version,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults come from env vars and built-in defaults)")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newValidateCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
