// Package core wires the three phases into a pipeline and owns run-wide
// configuration.
package core

import (
	"fmt"

	"github.com/spf13/viper"

	"ditapack/pkg/models"
)

// ConfigurationManager loads and validates the optional .ditapackrc file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the directory where .ditapackrc resides.
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// defaultGlobalConfig returns a GlobalConfig populated with the safe
// defaults: deny overwrites, keep going on per-action failures, warn on
// unknown maps.
func defaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Overwrite:           models.OverwriteDeny,
		FailFast:            false,
		UnknownMapsSeverity: models.SeverityWarning,
		AnalysisOnly:        false,
		EventLogPath:        "",
	}
}

// LoadGlobalConfig reads .ditapackrc from the base path using Viper. A
// missing file returns the defaults.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := defaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".ditapackrc")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("overwrite", string(cfg.Overwrite))
	v.SetDefault("fail_fast", cfg.FailFast)
	v.SetDefault("unknown_maps_severity", string(cfg.UnknownMapsSeverity))
	v.SetDefault("analysis_only", cfg.AnalysisOnly)
	v.SetDefault("event_log", cfg.EventLogPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .ditapackrc: %w", err)
	}

	cfg.Overwrite = models.OverwriteMode(v.GetString("overwrite"))
	cfg.FailFast = v.GetBool("fail_fast")
	cfg.UnknownMapsSeverity = models.Severity(v.GetString("unknown_maps_severity"))
	cfg.AnalysisOnly = v.GetBool("analysis_only")
	cfg.EventLogPath = v.GetString("event_log")

	if err := cm.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig rejects values outside the closed enums. Configuration is
// checked exactly once, here, and trusted downstream.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	switch cfg.Overwrite {
	case models.OverwriteDeny, models.OverwriteReplace, models.OverwriteSkip:
	default:
		return fmt.Errorf("invalid overwrite mode %q (want deny, replace, or skip)", cfg.Overwrite)
	}
	switch cfg.UnknownMapsSeverity {
	case models.SeverityBlocking, models.SeverityWarning, models.SeverityInfo:
	default:
		return fmt.Errorf("invalid unknown_maps_severity %q (want BLOCKING, WARNING, or INFO)", cfg.UnknownMapsSeverity)
	}
	return nil
}
