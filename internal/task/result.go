// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models the outcome records of a task attempt.
//
// Why a typed Outcome instead of an error?
//
// A low fit quality is not a software defect, and operators need to tell the
// two apart at a glance. Signaling the quality gate through a distinguished
// outcome kind (rather than a generic error) forces every call site to handle
// the gate explicitly; it cannot be accidentally swallowed by a blanket
// `if err != nil`.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the execution status of a task attempt.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// OutcomeKind is the closed set of terminal attempt outcomes.
type OutcomeKind int

const (
	// OutcomeSuccess: the attempt completed and passed every quality gate.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeQualityGate: the attempt completed, but a fit-quality or
	// fidelity metric missed its bound.
	OutcomeQualityGate
	// OutcomeError: run or postprocess failed outright.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeQualityGate:
		return "quality_gate"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Outcome is the terminal judgment of one attempt.
type Outcome struct {
	Kind OutcomeKind
	// Err is set for OutcomeError.
	Err error
	// Gate is set for OutcomeQualityGate.
	Gate *GateViolation
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeQualityGate:
		if o.Gate != nil {
			return o.Gate.Error()
		}
	case OutcomeError:
		if o.Err != nil {
			return o.Err.Error()
		}
	}
	return o.Kind.String()
}

// ExecutionResult is the persistent record of one task attempt against one
// target. It is created at start, finalized exactly once at completion or
// failure, written once to immutable history, and its Delta merged into the
// live calibration record.
type ExecutionResult struct {
	ID          string
	ExecutionID string
	TaskName    string
	Kind        Kind
	Target      string
	Status      Status
	Success     bool

	// InputParameters is the calibration state the task started from;
	// RunParameters are the runtime knobs of this attempt. Together they
	// make snapshot-based re-execution deterministic.
	InputParameters map[string]float64
	RunParameters   map[string]float64

	OutputParameters map[string]float64
	QualityMetrics   map[string]float64
	Delta            map[string]float64
	Figures          []string
	RawData          []string

	Message   string
	StartedAt time.Time
	EndedAt   time.Time
}

// NewExecutionResult creates the initial pending record for an attempt.
func NewExecutionResult(executionID string, h Handler, target string, now time.Time) *ExecutionResult {
	return &ExecutionResult{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		TaskName:    h.Name(),
		Kind:        h.Kind(),
		Target:      target,
		Status:      StatusPending,
		StartedAt:   now,
	}
}

// ResultStore is the persistence port for task attempt records. The concrete
// technology is external; see memstore for the in-memory implementation.
type ResultStore interface {
	// Save upserts the live record, making status changes immediately
	// visible to external observers.
	Save(ctx context.Context, r *ExecutionResult) error
	// Insert appends the finalized record to immutable history.
	Insert(ctx context.Context, r *ExecutionResult) error
	// FindByExecutionID returns all history records of one top-level execution.
	FindByExecutionID(ctx context.Context, executionID string) ([]*ExecutionResult, error)
}

// CalibrationStore is the persistence port for the live per-target
// calibration record. Merges are last-write-wins per parameter name.
type CalibrationStore interface {
	MergeParams(ctx context.Context, target string, params map[string]float64) error
	Params(ctx context.Context, target string) (map[string]float64, error)
}

// GateViolation describes which quality bound an attempt missed.
type GateViolation struct {
	Metric    string
	Value     float64
	Bound     float64
	Direction string // "below" or "above"
}

func (v *GateViolation) Error() string {
	return fmt.Sprintf("quality gate: %s=%g is %s bound %g", v.Metric, v.Value, v.Direction, v.Bound)
}

// QualityGates are the configured bounds a completed attempt must satisfy.
// Zero-valued gates are disabled.
type QualityGates struct {
	// MinR2 is the minimum acceptable goodness of fit.
	MinR2 float64
	// FidelityMin/FidelityMax bound the fidelity metric when present.
	FidelityMin float64
	FidelityMax float64
}

// Check inspects quality metrics and returns the first violated gate, or nil.
func (g QualityGates) Check(metrics map[string]float64) *GateViolation {
	if g.MinR2 > 0 {
		if r2, ok := metrics["r2"]; ok && r2 < g.MinR2 {
			return &GateViolation{Metric: "r2", Value: r2, Bound: g.MinR2, Direction: "below"}
		}
	}
	if fid, ok := metrics["fidelity"]; ok {
		if g.FidelityMin > 0 && fid < g.FidelityMin {
			return &GateViolation{Metric: "fidelity", Value: fid, Bound: g.FidelityMin, Direction: "below"}
		}
		if g.FidelityMax > 0 && fid > g.FidelityMax {
			return &GateViolation{Metric: "fidelity", Value: fid, Bound: g.FidelityMax, Direction: "above"}
		}
	}
	return nil
}
