package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.db")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCreateAndGetRun(t *testing.T) {
	c := openTestCatalog(t)

	run, err := c.CreateRun("/apps/sales.qvf")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := c.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "/apps/sales.qvf", got.Source)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.False(t, got.StartedAt.IsZero())
	assert.True(t, got.CompletedAt.IsZero())
}

func TestCompleteRun(t *testing.T) {
	c := openTestCatalog(t)

	run, err := c.CreateRun("/apps/sales.qvf")
	require.NoError(t, err)

	err = c.CompleteRun(run.ID, Metrics{
		App:         "Sales Demo",
		OutputDir:   "/apps/sales-pbip",
		Tables:      4,
		Pages:       2,
		Mapped:      18,
		Unconverted: 2,
	})
	require.NoError(t, err)

	got, err := c.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, "Sales Demo", got.App)
	assert.Equal(t, "/apps/sales-pbip", got.OutputDir)
	assert.Equal(t, 4, got.Tables)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, 18, got.Mapped)
	assert.Equal(t, 2, got.Unconverted)
	assert.False(t, got.CompletedAt.IsZero())
	assert.InDelta(t, 90.0, got.Rate(), 0.001)
}

func TestFailRun(t *testing.T) {
	c := openTestCatalog(t)

	run, err := c.CreateRun("/apps/broken.qvf")
	require.NoError(t, err)

	require.NoError(t, c.FailRun(run.ID, "unsupported container format"))

	got, err := c.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "unsupported container format", got.Error)
}

func TestUpdateUnknownRun(t *testing.T) {
	c := openTestCatalog(t)

	err := c.CompleteRun("no-such-run", Metrics{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = c.FailRun("no-such-run", "boom")
	require.Error(t, err)

	_, err = c.GetRun("no-such-run")
	require.Error(t, err)
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	c := openTestCatalog(t)

	var ids []string
	for _, src := range []string{"a.qvf", "b.qvf", "c.qvf"} {
		run, err := c.CreateRun(src)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := c.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	limited, err := c.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	latest, err := c.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, limited[0].ID, latest.ID)
	assert.Contains(t, ids, latest.ID)
}

func TestLatestRunEmptyCatalog(t *testing.T) {
	c := openTestCatalog(t)

	latest, err := c.LatestRun()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestFindings(t *testing.T) {
	c := openTestCatalog(t)

	run, err := c.CreateRun("/apps/sales.qvf")
	require.NoError(t, err)

	require.NoError(t, c.AddFindings(run.ID, FindingUnconverted, []string{
		"Aggr", "FirstSortedValue",
	}))
	require.NoError(t, c.AddFindings(run.ID, FindingSyntheticKey, []string{
		"Orders.CustomerID+Region",
	}))
	require.NoError(t, c.AddFindings(run.ID, FindingWarning, nil))

	findings, err := c.ListFindings(run.ID)
	require.NoError(t, err)
	require.Len(t, findings, 3)
	assert.Equal(t, FindingUnconverted, findings[0].Kind)
	assert.Equal(t, "Aggr", findings[0].Detail)
	assert.Equal(t, FindingSyntheticKey, findings[2].Kind)
}

func TestRateWithoutCounts(t *testing.T) {
	assert.Equal(t, 100.0, Run{}.Rate())
}

func TestSchemaVersion(t *testing.T) {
	c := openTestCatalog(t)

	version, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))
}
