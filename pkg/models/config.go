package models

// OverwriteMode controls how execution treats an existing write target.
type OverwriteMode string

const (
	OverwriteDeny    OverwriteMode = "deny"
	OverwriteReplace OverwriteMode = "replace"
	OverwriteSkip    OverwriteMode = "skip"
)

// GlobalConfig holds run-wide settings read from .ditapackrc via Viper.
// Every field has a default; the config file is optional.
type GlobalConfig struct {
	Overwrite           OverwriteMode `yaml:"overwrite" mapstructure:"overwrite"`
	FailFast            bool          `yaml:"fail_fast" mapstructure:"fail_fast"`
	UnknownMapsSeverity Severity      `yaml:"unknown_maps_severity" mapstructure:"unknown_maps_severity"`
	AnalysisOnly        bool          `yaml:"analysis_only" mapstructure:"analysis_only"`
	EventLogPath        string        `yaml:"event_log,omitempty" mapstructure:"event_log"`
}
