package migrations

import "fmt"

// MigrationError reports a failed up/down step. The version pointer reflects
// only fully-committed steps; the failing step's transaction is rolled back.
type MigrationError struct {
	Revision  string
	Direction string
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s (%s) failed: %v", e.Revision, e.Direction, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// IrreversibleDataError is raised on downgrade when present rows cannot be
// represented in the older schema. The rows must be fixed or removed before
// the downgrade can proceed.
type IrreversibleDataError struct {
	Revision string
	Reason   string
}

func (e *IrreversibleDataError) Error() string {
	return fmt.Sprintf("revision %s cannot be reversed: %s", e.Revision, e.Reason)
}
