package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.sqlitecore.dev/core/internal/txn"
)

// NewExecuteCommand creates the execute command (spec.md §6 "execute").
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:           "execute <db> <query>",
		Short:         "Run one ad-hoc write statement outside any transaction",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			bound, err := parseValues(values)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --values", err)
			}
			res, dbErr := rootOpts.Dispatcher.Execute(cmd.Context(), args[0], args[1], bound)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, res)
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "JSON array of positional parameters")
	return cmd
}

// statementArg is the JSON shape accepted by --statements for batched
// writes (spec.md §6 "statements[{query, values}]").
type statementArg struct {
	Query  string            `json:"query"`
	Values []json.RawMessage `json:"values"`
}

func parseStatements(raw string) ([]txn.Statement, error) {
	if raw == "" {
		return nil, fmt.Errorf("--statements is required")
	}
	var parsed []statementArg
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parsing --statements as a JSON array: %w", err)
	}
	out := make([]txn.Statement, 0, len(parsed))
	for _, s := range parsed {
		values, err := rawValuesToAny(s.Values)
		if err != nil {
			return nil, err
		}
		out = append(out, txn.Statement{Query: s.Query, Values: values})
	}
	return out, nil
}

func rawValuesToAny(values []json.RawMessage) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		var blob blobValue
		if err := json.Unmarshal(v, &blob); err == nil && blob.Base64 != "" {
			b, err := base64.StdEncoding.DecodeString(blob.Base64)
			if err != nil {
				return nil, fmt.Errorf("decoding blob_base64: %w", err)
			}
			out = append(out, b)
			continue
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, fmt.Errorf("parsing statement value: %w", err)
		}
		out = append(out, decoded)
	}
	return out, nil
}

// NewExecuteTransactionCommand creates the execute_transaction command
// (spec.md §6 "execute_transaction", §4.B "Atomic transaction").
func NewExecuteTransactionCommand(rootOpts *RootOptions) *cobra.Command {
	var statements string

	cmd := &cobra.Command{
		Use:           "execute-transaction <db>",
		Short:         "Run a batch of statements under one BEGIN/COMMIT frame",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			stmts, err := parseStatements(statements)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --statements", err)
			}
			results, dbErr := rootOpts.Dispatcher.ExecuteTransaction(cmd.Context(), args[0], stmts)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, results)
		},
	}

	cmd.Flags().StringVar(&statements, "statements", "", `JSON array of {"query":"...","values":[...]}`)
	return cmd
}

// NewFetchAllCommand creates the fetch_all command (spec.md §6
// "fetch_all").
func NewFetchAllCommand(rootOpts *RootOptions) *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:           "fetch-all <db> <query>",
		Short:         "Run a read query and return every matching row",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			bound, err := parseValues(values)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --values", err)
			}
			rows, dbErr := rootOpts.Dispatcher.FetchAll(cmd.Context(), args[0], args[1], bound)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, rows)
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "JSON array of positional parameters")
	return cmd
}

// NewFetchOneCommand creates the fetch_one command (spec.md §6
// "fetch_one").
func NewFetchOneCommand(rootOpts *RootOptions) *cobra.Command {
	var values string

	cmd := &cobra.Command{
		Use:           "fetch-one <db> <query>",
		Short:         "Run a read query and return its single matching row",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			bound, err := parseValues(values)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --values", err)
			}
			row, dbErr := rootOpts.Dispatcher.FetchOne(cmd.Context(), args[0], args[1], bound)
			if dbErr != nil {
				return respondError(formatter, dbErr)
			}
			return respondSuccess(formatter, row)
		},
	}

	cmd.Flags().StringVar(&values, "values", "", "JSON array of positional parameters")
	return cmd
}
