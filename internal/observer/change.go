package observer

import (
	"time"

	"go.sqlitecore.dev/core/internal/coltype"
)

// Operation identifies the kind of row-level change a hook fired for.
type Operation int

const (
	Insert Operation = iota
	Update
	Delete
)

func (o Operation) String() string {
	switch o {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeEvent is a committed, row-level change published after its
// transaction's commit hook fires (spec.md §3 "Change event").
type ChangeEvent struct {
	Table     string
	Operation Operation
	// Rowid is absent for WITHOUT ROWID tables (spec.md §4.C).
	Rowid *int64
	// PrimaryKey is the ordered PK tuple: post-image for Insert/Update,
	// pre-image for Delete.
	PrimaryKey []coltype.Value
	OldValues  []coltype.Value
	NewValues  []coltype.Value
	Sequence   uint64
	Timestamp  time.Time
}

// rawChange is what the pre-update hook buffers before primary keys are
// known; PK extraction needs TableInfo, which may only be resolved once
// the transaction's writer connection is in hand.
type rawChange struct {
	table     string
	operation Operation
	oldRowID  int64
	newRowID  int64
	hasOld    bool
	hasNew    bool
	oldValues []coltype.Value
	newValues []coltype.Value
}
