// Package internal provides the App struct that wires all components of
// ditapack together and initializes the CLI layer.
package internal

import (
	"os"

	"ditapack/internal/cli"
	"ditapack/internal/core"
	"ditapack/internal/observability"
)

// App holds all service dependencies for ditapack.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Pipeline
	Pipeline *core.Pipeline

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components. basePath is the directory the
// optional .ditapackrc is read from, typically the working directory.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	// --- Observability ---
	app.EventLog = observability.NewNopEventLog()
	if cfg.EventLogPath != "" {
		eventLog, logErr := observability.NewJSONLEventLog(cfg.EventLogPath)
		if logErr == nil {
			// Non-fatal: a run without an event log is still a valid run.
			app.EventLog = eventLog
		}
	}
	app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)

	// --- Pipeline ---
	app.Pipeline = core.NewPipeline(cfg, app.EventLog, nil, nil)

	// --- Wire CLI package-level variables ---
	cli.Config = cfg
	cli.Pipeline = app.Pipeline
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc

	return app, nil
}

// ResolveBasePath returns the directory configuration is read from: the
// current working directory, falling back to "." when it can't be
// determined.
func ResolveBasePath() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
