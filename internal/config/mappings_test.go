package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMappings(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMappings(t *testing.T) {
	path := writeMappings(t, `dax:
  XIRR: XIRR
  MonthStart: STARTOFMONTH
mquery:
  ApplyMap: "Table.ReplaceValue"
visuals:
  waterfallchart: waterfallChart
`)

	m, err := LoadMappings(path)
	require.NoError(t, err)
	assert.Equal(t, "STARTOFMONTH", m.DAX["MonthStart"])
	assert.Equal(t, "Table.ReplaceValue", m.MQuery["ApplyMap"])
	assert.Equal(t, "waterfallChart", m.Visuals["waterfallchart"])
}

func TestLoadMappingsUnknownSection(t *testing.T) {
	path := writeMappings(t, `dax:
  XIRR: XIRR
functions:
  Foo: Bar
`)

	_, err := LoadMappings(path)
	var unknownErr *UnknownSectionError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "functions", unknownErr.Section)
}

func TestLoadMappingsInvalidYAML(t *testing.T) {
	path := writeMappings(t, "dax: [unterminated")

	_, err := LoadMappings(path)
	var parseErr *MappingsParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestLoadMappingsEmptyTarget(t *testing.T) {
	path := writeMappings(t, `visuals:
  waterfallchart: ""
`)

	_, err := LoadMappings(path)
	var parseErr *MappingsParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Message, "visuals")
}

func TestLoadMappingsMissingFile(t *testing.T) {
	_, err := LoadMappings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMappingsEmptyFile(t *testing.T) {
	path := writeMappings(t, "")

	m, err := LoadMappings(path)
	require.NoError(t, err)
	assert.Empty(t, m.DAX)
	assert.Empty(t, m.MQuery)
	assert.Empty(t, m.Visuals)
}
