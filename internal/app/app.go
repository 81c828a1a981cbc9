package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/calibgo/internal/chip"
	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/plan"
	"github.com/vk/calibgo/internal/task"
	"github.com/vk/calibgo/internal/topology"
	"github.com/vk/calibgo/internal/wiring"
	"github.com/vk/calibgo/modules/sim"
)

// coreModules are the task modules registered when the caller passes none.
var coreModules = []task.Module{&sim.Module{}}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	plan     *plan.Plan
	wiring   *wiring.Config
	topo     *topology.ConflictMap
	chip     *chip.Snapshot
	registry *task.Registry
}

// New is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A failure to load or validate configuration is a fatal startup error and
// panics; the CLI entrypoint recovers and turns it into a clean exit.
func New(outW io.Writer, cfg *Config, loader plan.Loader, modules ...task.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	wcfg, err := wiring.Load(cfg.WiringPath)
	if err != nil {
		panic(fmt.Errorf("failed to load wiring: %w", err))
	}
	logger.Debug("Wiring loaded.", "muxes", len(wcfg.Muxes))

	topo, err := topology.Resolve(ctx, wcfg)
	if err != nil {
		panic(fmt.Errorf("failed to resolve chip topology: %w", err))
	}
	logger.Debug("Conflict map resolved.", "qubits", len(topo.QubitIDs()))

	p, err := loader.Load(ctx, cfg.PlanPath)
	if err != nil {
		panic(fmt.Errorf("failed to load calibration plan: %w", err))
	}
	logger.Debug("Calibration plan loaded.",
		"filters", len(p.Filters), "schedules", len(p.Schedules), "tasks", len(p.Tasks))

	snap, err := loadChip(cfg.ChipPath, topo)
	if err != nil {
		panic(fmt.Errorf("failed to load chip data: %w", err))
	}

	// Create and populate the registry with task handlers.
	reg := task.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All task modules registered.", "count", len(modules), "tasks", reg.Names())

	// Every task the plan schedules must have a registered handler. This is
	// a mismatch between plan and code, caught before anything runs.
	for _, sched := range p.Schedules {
		if _, ok := reg.Get(sched.Task); !ok {
			panic(fmt.Errorf("schedule %q references unregistered task %q", sched.Kind, sched.Task))
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		plan:     p,
		wiring:   wcfg,
		topo:     topo,
		chip:     snap,
		registry: reg,
	}
}

// Registry returns the application's task registry. This is primarily for testing.
func (a *App) Registry() *task.Registry {
	return a.registry
}

// Topology returns the resolved conflict map. This is primarily for testing.
func (a *App) Topology() *topology.ConflictMap {
	return a.topo
}
