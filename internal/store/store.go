// Package store persists run checkpoints and energy traces under a data
// directory laid out as <baseDir>/jobs/<jobID>/{checkpoint.json,trace.jsonl}.
package store

// Store defines checkpoint persistence. Implementations must be safe for
// concurrent use.
//
// Load and Delete return an error matching ErrNotFound for unknown jobs.
// Other failures are wrapped with fmt.Errorf("context: %w", err).
type Store interface {
	// SaveCheckpoint validates and atomically writes a checkpoint, replacing
	// any previous one for jobID.
	SaveCheckpoint(jobID string, checkpoint *Checkpoint) error

	// LoadCheckpoint reads the checkpoint for jobID.
	LoadCheckpoint(jobID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for every readable checkpoint, newest
	// first. Corrupt checkpoints are skipped.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the job directory with the checkpoint and
	// its trace.
	DeleteCheckpoint(jobID string) error
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing checkpoint error.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "checkpoint not found: " + e.JobID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
