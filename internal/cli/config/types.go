// Package config provides configuration management for the fabriclift
// CLI: a fabriclift.yaml project file layered with environment variables
// and command-line flags.
package config

// Defaults applied before any other configuration source.
const (
	DefaultStateFile = ".fabriclift/state.db"
	DefaultWorkers   = 4
	DefaultOutput    = "auto"
)

// Config holds all CLI configuration options.
type Config struct {
	OutputDir    string               `koanf:"output_dir"`
	ExtractDir   string               `koanf:"extract_dir"`
	StatePath    string               `koanf:"state_path"`
	Workers      int                  `koanf:"workers"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	MappingsFile string               `koanf:"mappings_file"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths resolve against. It is
	// derived at load time, never read from the file.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds per-environment overrides.
type EnvConfig struct {
	OutputDir    string `koanf:"output_dir"`
	ExtractDir   string `koanf:"extract_dir"`
	StatePath    string `koanf:"state_path"`
	Workers      int    `koanf:"workers"`
	MappingsFile string `koanf:"mappings_file"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return &ValidationError{Field: "workers", Message: "must be zero or positive"}
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return &ValidationError{Field: "output", Message: "must be one of: auto, text, markdown, json"}
	}
	return nil
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Field + " " + e.Message
}
