package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.sqlitecore.dev/core/internal/dberrors"
)

func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// blobValue is the JSON shape accepted for binary parameters, since JSON
// has no native blob type (spec.md §6 "Permitted value types: ... binary
// blob").
type blobValue struct {
	Base64 string `json:"blob_base64"`
}

// parseValues decodes a JSON array of positional parameters ($1, $2, ...)
// into the []any rawsql.Exec/Query expect.
func parseValues(raw string) ([]any, error) {
	if raw == "" {
		return nil, nil
	}
	var decoded []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parsing --values as a JSON array: %w", err)
	}
	out := make([]any, 0, len(decoded))
	for _, item := range decoded {
		var blob blobValue
		if err := json.Unmarshal(item, &blob); err == nil && blob.Base64 != "" {
			b, err := base64.StdEncoding.DecodeString(blob.Base64)
			if err != nil {
				return nil, fmt.Errorf("decoding blob_base64: %w", err)
			}
			out = append(out, b)
			continue
		}
		var v any
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("parsing --values element: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// respondSuccess writes data through formatter and returns nil.
func respondSuccess(formatter *OutputFormatter, data any) error {
	return formatter.Success(data)
}

// respondError reports a *dberrors.Error through formatter and converts it
// into the *ExitError cobra surfaces as the process exit code.
func respondError(formatter *OutputFormatter, dbErr *dberrors.Error) error {
	var details any
	if dbErr.SQLiteCode != "" {
		details = map[string]string{"sqlite_code": dbErr.SQLiteCode}
	}
	_ = formatter.Error(string(dbErr.Code), dbErr.Message, details)
	return WrapExitError(ExitCommandError, dbErr.Message, dbErr)
}
