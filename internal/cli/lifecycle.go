package cli

import (
	"github.com/spf13/cobra"
)

// NewCloseCommand creates the close command (spec.md §6 "close").
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "close <db>",
		Short:         "Drain and dispose of a database's connections",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			wasLoaded, dbErr := rootOpts.Dispatcher.Close(cmd.Context(), args[0])
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, map[string]bool{"was_loaded": wasLoaded})
		},
	}
}

// NewCloseAllCommand creates the close_all command (spec.md §6
// "close_all").
func NewCloseAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "close-all",
		Short:         "Roll back every live transaction, then close every loaded database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			if dbErr := rootOpts.Dispatcher.CloseAll(cmd.Context()); dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, nil)
		},
	}
}

// NewRemoveCommand creates the remove command (spec.md §6 "remove").
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <db>",
		Short:         "Close a database and delete its file and WAL/SHM/journal sidecars",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			wasLoaded, dbErr := rootOpts.Dispatcher.Remove(cmd.Context(), args[0])
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, map[string]bool{"was_loaded": wasLoaded})
		},
	}
}
