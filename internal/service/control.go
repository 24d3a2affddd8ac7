package service

import "sync/atomic"

// Outcome is how a job run ended from the processor's point of view.
// The orchestrator maps it onto the job state machine.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomePaused
	OutcomeCancelled
)

// String returns the outcome name for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomePaused:
		return "paused"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Control carries pause and cancel requests into a live job run. Flags
// are observed at dispatch checkpoints between items; the item being
// processed when a request arrives always finishes first.
type Control struct {
	pause  atomic.Bool
	cancel atomic.Bool
}

// RequestPause asks the run to stop at the next checkpoint, keeping the
// queue remainder for resume.
func (c *Control) RequestPause() { c.pause.Store(true) }

// RequestCancel asks the run to stop at the next checkpoint and discard
// the queue remainder.
func (c *Control) RequestCancel() { c.cancel.Store(true) }

// PauseRequested reports whether a pause is pending.
func (c *Control) PauseRequested() bool { return c.pause.Load() }

// CancelRequested reports whether a cancel is pending.
func (c *Control) CancelRequested() bool { return c.cancel.Load() }
