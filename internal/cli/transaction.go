package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.sqlitecore.dev/core/internal/dispatch"
	"go.sqlitecore.dev/core/internal/txn"
)

func parseToken(raw string) (txn.Token, error) {
	var token txn.Token
	if raw == "" {
		return token, fmt.Errorf("--token is required")
	}
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return token, fmt.Errorf("parsing --token: %w", err)
	}
	return token, nil
}

// NewBeginCommand creates the execute_interruptible_transaction command
// (spec.md §6 "execute_interruptible_transaction", §4.B "Interruptible
// transaction").
func NewBeginCommand(rootOpts *RootOptions) *cobra.Command {
	var statements string

	cmd := &cobra.Command{
		Use:           "begin <db>",
		Short:         "Begin an interruptible transaction and print its token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			var stmts []txn.Statement
			if statements != "" {
				var err error
				stmts, err = parseStatements(statements)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --statements", err)
				}
			}
			token, dbErr := rootOpts.Dispatcher.ExecuteInterruptibleTransaction(cmd.Context(), args[0], stmts)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, token)
		},
	}

	cmd.Flags().StringVar(&statements, "statements", "", `JSON array of {"query":"...","values":[...]} run before the token is returned`)
	return cmd
}

// NewTransactionReadCommand creates the transaction_read command
// (spec.md §6 "transaction_read").
func NewTransactionReadCommand(rootOpts *RootOptions) *cobra.Command {
	var tokenFlag string
	var values string

	cmd := &cobra.Command{
		Use:           "transaction-read <query>",
		Short:         "Run a SELECT on a live transaction, observing its own writes",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			token, err := parseToken(tokenFlag)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --token", err)
			}
			bound, err := parseValues(values)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --values", err)
			}
			rows, dbErr := rootOpts.Dispatcher.TransactionRead(cmd.Context(), token, args[0], bound)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, rows)
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", `JSON {"db_path":"...","transaction_id":"..."}`)
	cmd.Flags().StringVar(&values, "values", "", "JSON array of positional parameters")
	return cmd
}

// NewTransactionContinueCommand creates the transaction_continue command
// (spec.md §6 "transaction_continue").
func NewTransactionContinueCommand(rootOpts *RootOptions) *cobra.Command {
	var tokenFlag string
	var action string
	var statements string

	cmd := &cobra.Command{
		Use:           "transaction-continue",
		Short:         "Advance a live transaction: continue, commit, or rollback",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			token, err := parseToken(tokenFlag)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --token", err)
			}

			var act dispatch.Action
			switch action {
			case "continue":
				stmts, err := parseStatements(statements)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --statements", err)
				}
				act = dispatch.Action{Kind: dispatch.ActionContinue, Statements: stmts}
			case "commit":
				act = dispatch.Action{Kind: dispatch.ActionCommit}
			case "rollback":
				act = dispatch.Action{Kind: dispatch.ActionRollback}
			default:
				return NewExitError(ExitCommandError, `--action must be one of "continue", "commit", "rollback"`)
			}

			result, dbErr := rootOpts.Dispatcher.TransactionContinue(cmd.Context(), token, act)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, result)
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", `JSON {"db_path":"...","transaction_id":"..."}`)
	cmd.Flags().StringVar(&action, "action", "", `one of "continue", "commit", "rollback"`)
	cmd.Flags().StringVar(&statements, "statements", "", `for --action continue: JSON array of {"query":"...","values":[...]}`)
	return cmd
}
