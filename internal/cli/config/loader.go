package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search
// for a project file.
const maxUpwardSearchLevels = 10

var (
	configFileUsed string
	currentConfig  *Config
)

func configExistsIn(dir string) string {
	for _, name := range []string{"fabriclift.yaml", "fabriclift.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile locates the project file: an explicit path wins, then
// fabriclift.yaml|yml searched upward from the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path against baseDir unless it is
// empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load layers configuration sources, lowest to highest precedence:
// defaults, project file, FABRICLIFT_ environment variables, flags.
// envOverride selects a block from environments: to apply on top.
func Load(cfgFile, envOverride string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path": DefaultStateFile,
		"workers":    DefaultWorkers,
		"verbose":    false,
		"output":     DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	if err := k.Load(env.Provider("FABRICLIFT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FABRICLIFT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot(configFileUsed)

	if envOverride != "" {
		envCfg, ok := cfg.Environments[envOverride]
		if !ok {
			return nil, fmt.Errorf("environment %q not defined in %s", envOverride, configFileUsed)
		}
		if envCfg.OutputDir != "" {
			cfg.OutputDir = envCfg.OutputDir
		}
		if envCfg.ExtractDir != "" {
			cfg.ExtractDir = envCfg.ExtractDir
		}
		if envCfg.StatePath != "" {
			cfg.StatePath = envCfg.StatePath
		}
		if envCfg.Workers > 0 {
			cfg.Workers = envCfg.Workers
		}
		if envCfg.MappingsFile != "" {
			cfg.MappingsFile = envCfg.MappingsFile
		}
	}

	cfg.OutputDir = resolvePathRelativeTo(cfg.OutputDir, cfg.ProjectRoot)
	cfg.ExtractDir = resolvePathRelativeTo(cfg.ExtractDir, cfg.ProjectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, cfg.ProjectRoot)
	cfg.MappingsFile = resolvePathRelativeTo(cfg.MappingsFile, cfg.ProjectRoot)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetCurrentConfig returns the configuration from the last Load call, or
// nil when none has run.
func GetCurrentConfig() *Config {
	return currentConfig
}

// projectRoot is the config file's directory when one was found, the
// working directory otherwise.
func projectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
