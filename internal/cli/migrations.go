package cli

import (
	"github.com/spf13/cobra"
)

// NewMigrationEventsCommand creates the get_migration_events command
// (spec.md §6 "get_migration_events").
func NewMigrationEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migration-events <db>",
		Short:         "Print db's full migration event trail",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			events := rootOpts.Dispatcher.GetMigrationEvents(args[0])
			return respondSuccess(formatter, events)
		},
	}
}
