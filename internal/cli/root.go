package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go.sqlitecore.dev/core/internal/dispatch"
)

// RootOptions holds global flags and the shared Dispatcher every
// subcommand drives. The Dispatcher is built once and reused for the
// lifetime of the process, so a load in one command is visible to a
// later execute/fetch/transaction command in the same process, and a
// transaction token only remains valid across commands run within that
// same process (spec.md §4.B "Tokens are not persisted; they do not
// survive a process restart").
type RootOptions struct {
	Verbose    bool
	Format     string
	BaseDir    string
	ConfigFile string

	Dispatcher *dispatch.Dispatcher
	Default    DefaultConfig
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlitecore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlitecore",
		Short: "sqlitecore - SQLite connection manager, transaction coordinator, and change observer",
		Long: `sqlitecore exposes the connection manager, transaction coordinator,
change observer, and migration runner described by this project's command
surface as a scriptable command line, for operators and test harnesses.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			// The Dispatcher is built once per root command and reused
			// across every subcommand invocation that shares this
			// *RootOptions, since its connection registry, transaction
			// coordinator, and migration cache are in-process state that
			// a single script (calling Execute repeatedly against the
			// same root command) relies on surviving between commands.
			if opts.Dispatcher != nil {
				return nil
			}

			def, err := loadDefaultConfig(opts.ConfigFile)
			if err != nil {
				return err
			}
			opts.Default = def
			if opts.BaseDir == "" {
				opts.BaseDir = def.BaseDir
			}

			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			opts.Dispatcher = dispatch.New(
				dispatch.WithBaseDir(opts.BaseDir),
				dispatch.WithMigrations(def.migrations()),
				dispatch.WithLogger(logger),
			)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.BaseDir, "base-dir", "", "directory logical database paths resolve against")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a YAML defaults file")

	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewExecuteCommand(opts))
	cmd.AddCommand(NewExecuteTransactionCommand(opts))
	cmd.AddCommand(NewFetchAllCommand(opts))
	cmd.AddCommand(NewFetchOneCommand(opts))
	cmd.AddCommand(NewBeginCommand(opts))
	cmd.AddCommand(NewTransactionReadCommand(opts))
	cmd.AddCommand(NewTransactionContinueCommand(opts))
	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewCloseAllCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewMigrationEventsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
