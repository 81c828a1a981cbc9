package task

import (
	"fmt"
	"sync/atomic"
)

// Attempt is the state machine of one task attempt:
//
//	Pending -> Running -> {Success, Failed}
//
// Failed is terminal for the attempt. There is no automatic retry here; a
// retry is a fresh Attempt issued by the calling workflow.
type Attempt struct {
	status atomic.Int32
}

// NewAttempt returns an attempt in Pending.
func NewAttempt() *Attempt {
	return &Attempt{}
}

// Status returns the current state.
func (a *Attempt) Status() Status {
	return Status(a.status.Load())
}

// Start transitions Pending -> Running.
func (a *Attempt) Start() error {
	return a.transition(StatusPending, StatusRunning)
}

// Succeed transitions Running -> Success.
func (a *Attempt) Succeed() error {
	return a.transition(StatusRunning, StatusSuccess)
}

// Fail transitions Running -> Failed.
func (a *Attempt) Fail() error {
	return a.transition(StatusRunning, StatusFailed)
}

func (a *Attempt) transition(from, to Status) error {
	if !a.status.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("invalid task transition %s -> %s (current: %s)",
			from, to, a.Status())
	}
	return nil
}
