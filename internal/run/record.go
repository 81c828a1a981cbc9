// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models a top-level calibration execution.
//
// Why both a mutable record and an immutable history?
//
// The current record answers "what is running right now" cheaply; the history
// answers "what happened and when" without any risk of a later update
// rewriting the past. Every status transition therefore does both: update the
// record, append a history entry.
package run

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle of a top-level execution. It mirrors the task
// attempt machine one level up.
type Status int

const (
	StatusScheduled Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Record is the mutable current state of one execution. The id is unique per
// (project, user, chip, date): the date plus an atomically assigned index.
type Record struct {
	ID      string
	Project string
	User    string
	Chip    string
	Date    string
	Index   int
	Status  Status
	Note    string

	StartedAt time.Time
	EndedAt   time.Time
}

// ExecutionID formats the canonical execution id for a date and index.
func ExecutionID(date string, index int) string {
	return fmt.Sprintf("%s-%03d", date, index)
}

// StatusChange is one immutable history entry.
type StatusChange struct {
	ExecutionID string
	From        Status
	To          Status
	At          time.Time
}

// Store is the persistence port for execution records and their history.
type Store interface {
	Insert(ctx context.Context, r *Record) error
	Save(ctx context.Context, r *Record) error
	FindByID(ctx context.Context, id string) (*Record, error)
	AppendHistory(ctx context.Context, c *StatusChange) error
	// History returns the status changes of an execution in append order.
	History(ctx context.Context, executionID string) ([]*StatusChange, error)
}
