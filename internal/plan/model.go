// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package plan models the calibration plan file: which filters narrow the
// candidates, which strategy groups them, which tasks run with what default
// parameters, and the quality bounds a result must satisfy.
//
// Why a separate model from the HCL schema?
//
// The loader decodes HCL into this format-agnostic model once, up front.
// Everything downstream (pipeline construction, scheduler wiring, the
// executor's quality gates) consumes plain Go values and never sees an HCL
// expression, so a future loader for another format only has to produce this
// model.
package plan

import "context"

// Plan is the decoded calibration plan.
type Plan struct {
	Project  string
	User     string
	Chip     string
	Operator string

	MaxParallelOps int
	Coloring       string

	Thresholds Thresholds
	Filters    []FilterConfig
	Schedules  []ScheduleConfig
	Tasks      []TaskConfig
}

// Thresholds are the quality gate bounds.
type Thresholds struct {
	R2          float64
	FidelityMin float64
	FidelityMax float64
}

// FilterConfig is one filter block. Kind selects the filter; the remaining
// fields are meaningful per kind.
type FilterConfig struct {
	Kind      string
	Qubits    []string // candidate_set
	Metric    string   // fidelity
	Min       float64  // fidelity
	Direction string   // frequency_directionality
}

// ScheduleConfig is one schedule block.
type ScheduleConfig struct {
	Kind     string // "cr" or "one_qubit"
	Task     string
	Strategy string // cr: "coloring" or "intra_then_inter"
	Muxes    []int  // one_qubit
	Ordering string // one_qubit
}

// TaskConfig carries per-task default run parameters.
type TaskConfig struct {
	Name   string
	Params map[string]float64
}

// Loader is the interface for a format-specific plan loader.
type Loader interface {
	Load(ctx context.Context, path string) (*Plan, error)
}
