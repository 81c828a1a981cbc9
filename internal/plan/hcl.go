package plan

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/fsutil"
)

// --- HCL schema ---

type planFile struct {
	Plan *planBlock `hcl:"plan,block"`
}

type planBlock struct {
	Project  string `hcl:"project,optional"`
	User     string `hcl:"user,optional"`
	Chip     string `hcl:"chip,optional"`
	Operator string `hcl:"operator,optional"`

	MaxParallelOps int    `hcl:"max_parallel_ops,optional"`
	Coloring       string `hcl:"coloring,optional"`

	Thresholds *thresholdsBlock `hcl:"thresholds,block"`
	Filters    []*filterBlock   `hcl:"filter,block"`
	Schedules  []*scheduleBlock `hcl:"schedule,block"`
	Tasks      []*taskBlock     `hcl:"task,block"`
}

type thresholdsBlock struct {
	R2          float64 `hcl:"r2,optional"`
	FidelityMin float64 `hcl:"fidelity_min,optional"`
	FidelityMax float64 `hcl:"fidelity_max,optional"`
}

type filterBlock struct {
	Kind string   `hcl:"kind,label"`
	Body hcl.Body `hcl:",remain"`
}

type candidateSetBody struct {
	Qubits []string `hcl:"qubits,optional"`
}

type fidelityBody struct {
	Metric string  `hcl:"metric"`
	Min    float64 `hcl:"min"`
}

type directionalityBody struct {
	Direction string `hcl:"direction,optional"`
}

type scheduleBlock struct {
	Kind     string `hcl:"kind,label"`
	Task     string `hcl:"task"`
	Strategy string `hcl:"strategy,optional"`
	Muxes    []int  `hcl:"muxes,optional"`
	Ordering string `hcl:"ordering,optional"`
}

type taskBlock struct {
	Name   string        `hcl:"task_name,label"`
	Params []*paramBlock `hcl:"param,block"`
}

type paramBlock struct {
	Name    string         `hcl:"param_name,label"`
	Default hcl.Expression `hcl:"default"`
}

// HCLLoader loads plan files written in HCL.
type HCLLoader struct{}

// NewHCLLoader creates the HCL plan loader.
func NewHCLLoader() *HCLLoader {
	return &HCLLoader{}
}

// Load parses and decodes a plan into the format-agnostic model. The path may
// be a single .hcl file or a directory, in which case every .hcl file under it
// is parsed and merged before decoding.
func (l *HCLLoader) Load(ctx context.Context, path string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := resolvePaths(path)
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	var files []*hcl.File
	for _, p := range paths {
		file, diags := parser.ParseHCLFile(p)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse plan file %s: %w", p, diags)
		}
		files = append(files, file)
	}

	var raw planFile
	if diags := gohcl.DecodeBody(hcl.MergeFiles(files), nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plan file %s: %w", path, diags)
	}
	if raw.Plan == nil {
		return nil, fmt.Errorf("plan file %s: missing plan block", path)
	}

	p := &Plan{
		Project:        raw.Plan.Project,
		User:           raw.Plan.User,
		Chip:           raw.Plan.Chip,
		Operator:       raw.Plan.Operator,
		MaxParallelOps: raw.Plan.MaxParallelOps,
		Coloring:       raw.Plan.Coloring,
	}
	if raw.Plan.Thresholds != nil {
		p.Thresholds = Thresholds{
			R2:          raw.Plan.Thresholds.R2,
			FidelityMin: raw.Plan.Thresholds.FidelityMin,
			FidelityMax: raw.Plan.Thresholds.FidelityMax,
		}
	}

	for _, fb := range raw.Plan.Filters {
		fc, err := decodeFilter(fb)
		if err != nil {
			return nil, fmt.Errorf("plan file %s: %w", path, err)
		}
		p.Filters = append(p.Filters, fc)
	}

	for _, sb := range raw.Plan.Schedules {
		p.Schedules = append(p.Schedules, ScheduleConfig{
			Kind:     sb.Kind,
			Task:     sb.Task,
			Strategy: sb.Strategy,
			Muxes:    sb.Muxes,
			Ordering: sb.Ordering,
		})
	}

	for _, tb := range raw.Plan.Tasks {
		tc := TaskConfig{Name: tb.Name, Params: make(map[string]float64, len(tb.Params))}
		for _, pb := range tb.Params {
			v, err := evalNumber(pb.Default)
			if err != nil {
				return nil, fmt.Errorf("plan file %s: task %q param %q: %w", path, tb.Name, pb.Name, err)
			}
			tc.Params[pb.Name] = v
		}
		p.Tasks = append(p.Tasks, tc)
	}

	logger.Debug("Plan loaded.",
		"path", path, "filters", len(p.Filters), "schedules", len(p.Schedules))
	return p, nil
}

// resolvePaths expands a plan path into the list of .hcl files to parse.
func resolvePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plan path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	paths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("scan plan directory %s: %w", path, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("plan directory %s contains no .hcl files", path)
	}
	return paths, nil
}

func decodeFilter(fb *filterBlock) (FilterConfig, error) {
	fc := FilterConfig{Kind: fb.Kind}
	switch fb.Kind {
	case "candidate_set":
		var body candidateSetBody
		if diags := gohcl.DecodeBody(fb.Body, nil, &body); diags.HasErrors() {
			return fc, fmt.Errorf("filter %q: %w", fb.Kind, diags)
		}
		fc.Qubits = body.Qubits
	case "fidelity":
		var body fidelityBody
		if diags := gohcl.DecodeBody(fb.Body, nil, &body); diags.HasErrors() {
			return fc, fmt.Errorf("filter %q: %w", fb.Kind, diags)
		}
		fc.Metric, fc.Min = body.Metric, body.Min
	case "frequency_directionality":
		var body directionalityBody
		if diags := gohcl.DecodeBody(fb.Body, nil, &body); diags.HasErrors() {
			return fc, fmt.Errorf("filter %q: %w", fb.Kind, diags)
		}
		fc.Direction = body.Direction
	default:
		return fc, fmt.Errorf("unknown filter kind %q", fb.Kind)
	}
	return fc, nil
}

// evalNumber evaluates a literal expression and converts it to a float64 via
// cty, so "0.5", "1" and arithmetic literals all decode uniformly.
func evalNumber(expr hcl.Expression) (float64, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, fmt.Errorf("evaluate default: %w", diags)
	}
	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("default is not a number: %w", err)
	}
	f, _ := num.AsBigFloat().Float64()
	return f, nil
}
