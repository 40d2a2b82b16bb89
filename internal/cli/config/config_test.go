package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fabriclift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), "", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.Equal(t, filepath.Join(".fabriclift", "state.db"),
		cfg.StatePath[len(cfg.ProjectRoot)+1:])
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `output_dir: out
extract_dir: work/extracted
workers: 8
output: json
mappings_file: mappings.yaml
`)

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)

	root := filepath.Dir(path)
	assert.Equal(t, filepath.Join(root, "out"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(root, "work/extracted"), cfg.ExtractDir)
	assert.Equal(t, filepath.Join(root, "mappings.yaml"), cfg.MappingsFile)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "workers: 8\n")
	t.Setenv("FABRICLIFT_WORKERS", "2")

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "workers: 8\noutput: json\n")
	t.Setenv("FABRICLIFT_WORKERS", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 0, "")
	flags.String("output", "", "")
	require.NoError(t, flags.Parse([]string{"--workers", "6"}))

	cfg, err := Load(path, "", flags)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Workers)
	// Unchanged flags do not override the file.
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadEnvironmentBlock(t *testing.T) {
	path := writeConfig(t, `workers: 8
output_dir: out
environments:
  ci:
    workers: 1
    output_dir: ci-out
`)

	cfg, err := Load(path, "ci", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "ci-out"), cfg.OutputDir)
}

func TestLoadUnknownEnvironment(t *testing.T) {
	path := writeConfig(t, "workers: 8\n")

	_, err := Load(path, "staging", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `environment "staging" not defined`)
}

func TestLoadInvalidOutputMode(t *testing.T) {
	path := writeConfig(t, "output: fancy\n")

	_, err := Load(path, "", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "output", verr.Field)
}

func TestLoadAbsolutePathsKept(t *testing.T) {
	path := writeConfig(t, "output_dir: /srv/pbip\n")

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/pbip", cfg.OutputDir)
}
