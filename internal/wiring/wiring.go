// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models the wiring configuration file.
//
// Why model the wiring separately from the conflict map?
//
// The wiring file describes the physical cabling: which control and readout
// modules serve each multiplexer. Everything the schedulers need (qubit to
// multiplexer assignment, module sharing, box classification) is *derived*
// from this file. Keeping the raw file model separate means the derivation can
// be recomputed at any time and the raw data is never mutated.
package wiring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MuxEntry is a single multiplexer entry from the wiring file. Each string
// token is "<module>-<channel>"; the module prefix before the final separator
// is the conflict and classification key.
type MuxEntry struct {
	Mux     *int     `yaml:"mux"`
	Ctrl    []string `yaml:"ctrl"`
	ReadOut string   `yaml:"readout"`
	ReadIn  string   `yaml:"readin"`
	Pump    string   `yaml:"pump"`
}

// Config is the parsed wiring file.
type Config struct {
	Muxes []MuxEntry `yaml:"muxes"`
}

// ConfigError marks a malformed wiring file. It is fatal: schedule generation
// aborts before any hardware interaction.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "wiring config: " + e.Reason
}

// Parse decodes and validates wiring YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if len(cfg.Muxes) == 0 {
		return nil, &ConfigError{Reason: "no multiplexer entries"}
	}
	seen := make(map[int]bool, len(cfg.Muxes))
	for i, e := range cfg.Muxes {
		if e.Mux == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("entry %d: missing multiplexer id", i)}
		}
		if seen[*e.Mux] {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate multiplexer id %d", *e.Mux)}
		}
		seen[*e.Mux] = true
		if len(e.Ctrl) == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("mux %d: no control tokens", *e.Mux)}
		}
		for _, tok := range append(append([]string{}, e.Ctrl...), e.ReadOut) {
			if _, err := Module(tok); err != nil {
				return nil, &ConfigError{Reason: fmt.Sprintf("mux %d: %v", *e.Mux, err)}
			}
		}
	}
	return &cfg, nil
}

// Load reads and parses a wiring file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wiring file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Module extracts the module prefix from a "<module>-<channel>" token.
func Module(token string) (string, error) {
	i := strings.LastIndex(token, "-")
	if i <= 0 || i == len(token)-1 {
		return "", fmt.Errorf("malformed module token %q", token)
	}
	return token[:i], nil
}

// QubitIDs returns the qubit ids served by the entry. Qubits are numbered
// densely per multiplexer: mux m with n control lines serves qubits
// m*n .. m*n+n-1, encoded as decimal strings.
func (e *MuxEntry) QubitIDs() []string {
	ids := make([]string, len(e.Ctrl))
	for i := range e.Ctrl {
		ids[i] = fmt.Sprintf("%d", *e.Mux*len(e.Ctrl)+i)
	}
	return ids
}
