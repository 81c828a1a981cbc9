// Package task defines the calibration task contract, the explicit task
// registry, and the per-attempt execution state machine with its quality
// gates. The measurement physics lives behind the Handler interface; this
// package only cares how an attempt is tracked and judged.
package task

import (
	"context"
	"fmt"
)

// Kind is the closed set of task targets.
type Kind int

const (
	// KindQubit tasks target a single qubit.
	KindQubit Kind = iota
	// KindCoupling tasks target a qubit pair.
	KindCoupling
	// KindSystem tasks target the whole chip.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindQubit:
		return "qubit"
	case KindCoupling:
		return "coupling"
	case KindSystem:
		return "system"
	}
	return "unknown"
}

// ParseKind validates a task kind from configuration.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "qubit":
		return KindQubit, nil
	case "coupling":
		return KindCoupling, nil
	case "system":
		return KindSystem, nil
	}
	return 0, fmt.Errorf("unknown task kind %q", s)
}

// RawResult is the opaque output of a measurement run, handed back to the
// same handler for postprocessing.
type RawResult struct {
	Data map[string]any
}

// PostprocessResult is what a handler distills from a raw measurement.
type PostprocessResult struct {
	// OutputParameters are the fitted values the task reports.
	OutputParameters map[string]float64
	// QualityMetrics are the gate inputs, e.g. "r2" or "fidelity".
	QualityMetrics map[string]float64
	// Delta is merged into the live calibration record of the target,
	// last write wins per parameter name.
	Delta map[string]float64
	// Figures and RawData are references to rendered artifacts.
	Figures []string
	RawData []string
}

// Handler is the uniform task contract the executor depends on. The scheduler
// and executor never see measurement physics, only this interface.
type Handler interface {
	Name() string
	Kind() Kind
	Run(ctx context.Context, target string) (*RawResult, error)
	Postprocess(ctx context.Context, executionID string, raw *RawResult, target string) (*PostprocessResult, error)
}
