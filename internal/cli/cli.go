package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/calibgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("calibgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
calibgo - A conflict-aware calibration scheduling and execution engine.

Usage:
  calibgo [options] [PLAN_PATH]

Arguments:
  PLAN_PATH
    Path to the calibration plan (.hcl file).

Options:
`)
		flagSet.PrintDefaults()
	}

	planFlag := flagSet.String("plan", "", "Path to the calibration plan file.")
	pFlag := flagSet.String("p", "", "Path to the calibration plan file (shorthand).")
	wiringFlag := flagSet.String("wiring", "", "Path to the mux wiring file (yaml).")
	chipFlag := flagSet.String("chip", "", "Path to the chip data file (yaml). Optional.")
	operatorFlag := flagSet.String("operator", "", "Operator name; overrides the plan's operator.")
	noteFlag := flagSet.String("note", "", "Free-form note attached to the execution record.")
	resumeFlag := flagSet.String("resume", "", "Prior execution id whose recorded parameters are replayed.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	planPath := ""
	if *planFlag != "" {
		planPath = *planFlag
	} else if *pFlag != "" {
		planPath = *pFlag
	} else if flagSet.NArg() > 0 {
		planPath = flagSet.Arg(0)
	}
	slog.Debug("Plan path determined.", "path", planPath)

	if planPath == "" {
		slog.Debug("No plan path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if *wiringFlag == "" {
		return nil, false, &ExitError{Code: 2, Message: "missing required flag: -wiring"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WiringPath: *wiringFlag,
		PlanPath:   planPath,
		ChipPath:   *chipFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Operator:   *operatorFlag,
		Note:       *noteFlag,
		Resume:     *resumeFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
