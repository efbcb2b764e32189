package dispatch

import (
	"context"

	"go.sqlitecore.dev/core/internal/dberrors"
	"go.sqlitecore.dev/core/internal/txn"
)

// ExecuteInterruptibleTransaction begins a new interruptible transaction
// and returns its token (spec.md §6 "execute_interruptible_transaction").
func (d *Dispatcher) ExecuteInterruptibleTransaction(ctx context.Context, db string, initialStatements []txn.Statement) (txn.Token, *dberrors.Error) {
	if _, ok := d.conns.Get(db); !ok {
		return txn.Token{}, dberrors.Newf(dberrors.DatabaseNotLoaded, "database %q is not loaded", db)
	}
	token, err := d.txns.Begin(ctx, db, initialStatements)
	if err != nil {
		return txn.Token{}, translateSQLiteError(err)
	}
	return token, nil
}

// TransactionRead runs a SELECT on token's transaction, observing its own
// uncommitted writes (spec.md §6 "transaction_read").
func (d *Dispatcher) TransactionRead(ctx context.Context, token txn.Token, query string, values []any) ([]txn.Row, *dberrors.Error) {
	rows, err := d.txns.Read(ctx, token, query, values)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	return rows, nil
}

// ActionKind distinguishes the three transaction_continue actions
// spec.md §6 names.
type ActionKind int

const (
	ActionContinue ActionKind = iota
	ActionCommit
	ActionRollback
)

// Action is transaction_continue's argument (spec.md §6: "action ∈
// {Continue{statements}, Commit, Rollback}").
type Action struct {
	Kind       ActionKind
	Statements []txn.Statement
}

// ContinueResult is transaction_continue's result: a refreshed token for
// Continue, or nothing for Commit/Rollback (spec.md §6: "token (for
// Continue) or unit").
type ContinueResult struct {
	Token   *txn.Token
	Results []txn.WriteResult
}

// TransactionContinue advances token's transaction per action.Kind
// (spec.md §6 "transaction_continue", §4.B table of permitted transitions).
func (d *Dispatcher) TransactionContinue(ctx context.Context, token txn.Token, action Action) (ContinueResult, *dberrors.Error) {
	switch action.Kind {
	case ActionContinue:
		newToken, results, err := d.txns.Continue(ctx, token, action.Statements)
		if err != nil {
			return ContinueResult{}, translateSQLiteError(err)
		}
		return ContinueResult{Token: &newToken, Results: results}, nil
	case ActionCommit:
		if err := d.txns.Commit(ctx, token); err != nil {
			return ContinueResult{}, translateSQLiteError(err)
		}
		return ContinueResult{}, nil
	case ActionRollback:
		if err := d.txns.Rollback(ctx, token); err != nil {
			return ContinueResult{}, translateSQLiteError(err)
		}
		return ContinueResult{}, nil
	default:
		return ContinueResult{}, dberrors.Newf(dberrors.InvalidArgument, "unknown transaction action %d", action.Kind)
	}
}
