package app

import "time"

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Run tracks one CLI invocation for the log. A run starts successful and
// is marked failed by the command that hit an error.
type Run struct {
	ID         string
	Command    string
	Parameters string
	Status     string
	Started    time.Time
}

// NewRun creates a run record for command.
func NewRun(id, command, parameters string, started time.Time) *Run {
	return &Run{
		ID:         id,
		Command:    command,
		Parameters: parameters,
		Status:     StatusSuccess,
		Started:    started,
	}
}

// Fail marks the run as failed.
func (r *Run) Fail() {
	r.Status = StatusError
}

// Failed returns true if the run was marked as failed.
func (r *Run) Failed() bool {
	return r.Status == StatusError
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.Started)
}
