package cli

import (
	"github.com/spf13/cobra"

	"go.sqlitecore.dev/core/internal/dispatch"
)

// NewLoadCommand creates the load command (spec.md §6 "load").
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	var maxReadConnections int
	var idleTimeoutSecs int
	var tables []string
	var captureValues bool

	cmd := &cobra.Command{
		Use:           "load <db>",
		Short:         "Open a database, running pending migrations",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &dispatch.LoadOptions{}
			if cmd.Flags().Changed("max-read-connections") {
				opts.MaxReadConnections = &maxReadConnections
			}
			if cmd.Flags().Changed("idle-timeout-secs") {
				opts.IdleTimeoutSecs = &idleTimeoutSecs
			}
			if cmd.Flags().Changed("tables") {
				opts.Tables = tables
			}
			if cmd.Flags().Changed("capture-values") {
				opts.CaptureValues = &captureValues
			}

			formatter := formatterFor(rootOpts, cmd)
			path, dbErr := rootOpts.Dispatcher.Load(cmd.Context(), args[0], opts)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, map[string]string{"resolved_path": path})
		},
	}

	cmd.Flags().IntVar(&maxReadConnections, "max-read-connections", 0, "reader pool capacity override")
	cmd.Flags().IntVar(&idleTimeoutSecs, "idle-timeout-secs", 0, "reader idle-reclamation timeout override")
	cmd.Flags().StringSliceVar(&tables, "tables", nil, "restrict the change observer to these tables (default: all)")
	cmd.Flags().BoolVar(&captureValues, "capture-values", true, "capture old/new column values in change events")

	return cmd
}
