// Package sim provides a simulated measurement backend implementing the task
// contract. It stands in for the real hardware backend in local runs and
// integration-style tests: results are synthesized deterministically from the
// task name and target, so a given schedule always reproduces the same
// numbers.
package sim

import (
	"context"
	"hash/fnv"

	"github.com/vk/calibgo/internal/task"
)

// Module implements the task.Module interface for this package.
type Module struct{}

// Register registers the simulated handlers with the engine.
func (m *Module) Register(r *task.Registry) {
	r.Register(&handler{name: "sim_rabi", kind: task.KindQubit, param: "rabi_frequency"})
	r.Register(&handler{name: "sim_t1", kind: task.KindQubit, param: "t1"})
	r.Register(&handler{name: "sim_cr", kind: task.KindCoupling, param: "cr_amplitude"})
	r.Register(&handler{name: "sim_readout", kind: task.KindSystem, param: "readout_threshold"})
}

// handler is one simulated calibration task.
type handler struct {
	name  string
	kind  task.Kind
	param string
}

func (h *handler) Name() string    { return h.name }
func (h *handler) Kind() task.Kind { return h.kind }

func (h *handler) Run(ctx context.Context, target string) (*task.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &task.RawResult{Data: map[string]any{
		"signal": h.noise(target),
		"target": target,
	}}, nil
}

func (h *handler) Postprocess(ctx context.Context, executionID string, raw *task.RawResult, target string) (*task.PostprocessResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := h.noise(target)
	value := 0.5 + n/2

	return &task.PostprocessResult{
		OutputParameters: map[string]float64{h.param: value},
		QualityMetrics: map[string]float64{
			"r2":       0.95 + n*0.05,
			"fidelity": 0.90 + n*0.10,
		},
		Delta:   map[string]float64{h.param: value},
		Figures: []string{executionID + "/" + h.name + "/" + target + ".png"},
		RawData: []string{executionID + "/" + h.name + "/" + target + ".json"},
	}, nil
}

// noise maps (task, target) to a stable value in [0, 1).
func (h *handler) noise(target string) float64 {
	f := fnv.New32a()
	f.Write([]byte(h.name))
	f.Write([]byte(target))
	return float64(f.Sum32()%1000) / 1000
}
