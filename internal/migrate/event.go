package migrate

import (
	"time"

	"github.com/google/uuid"
)

// Status is one of the three migration event kinds spec.md §4.D names.
type Status string

const (
	Running   Status = "Running"
	Completed Status = "Completed"
	Failed    Status = "Failed"
)

// Event is one migration lifecycle notification (spec.md §3 "Migration
// events"). MigrationCount is only meaningful on Completed (the total
// migration count in the migrator, not just newly applied — spec.md
// §4.D); Error is only meaningful on Failed.
type Event struct {
	ID             uuid.UUID
	DBPath         string
	Status         Status
	MigrationCount int
	Error          string
	Timestamp      time.Time
}
