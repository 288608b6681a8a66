package cli

import (
	"ditapack/internal/core"
	"ditapack/internal/observability"
	"ditapack/pkg/models"
)

// Service instances, set during app initialization in internal/app.go.
var (
	Config      *models.GlobalConfig
	Pipeline    *core.Pipeline
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)
