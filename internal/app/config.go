package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WiringPath string // mux wiring yaml
	PlanPath   string // calibration plan hcl
	ChipPath   string // chip data yaml, optional

	LogFormat string
	LogLevel  string

	// Operator overrides the plan's operator when non-empty.
	Operator string
	// Note is attached to the execution record.
	Note string
	// Resume names a prior execution id whose recorded task parameters are
	// replayed instead of the live calibration state.
	Resume string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.WiringPath == "" {
		return nil, errors.New("WiringPath is a required configuration field and cannot be empty")
	}
	if cfg.PlanPath == "" {
		return nil, errors.New("PlanPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
