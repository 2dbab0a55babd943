package diagnostics

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"phenomatrix/pkg/tables"
)

func fixtureTables() *tables.Tables {
	rows := []tables.Row{
		{ConditionID: "ORPHA:1", ConditionName: "Alpha", FeatureID: "HP:0000001", Frequency: "Very frequent"},
		{ConditionID: "ORPHA:2", FeatureID: "HP:0000002", Frequency: "Rare"},
		{ConditionID: "OMIM:3", ConditionName: "Gamma", FeatureID: "MP:0000001", Frequency: "1/2"},
	}
	return tables.Normalize(rows, map[string]string{"HP:0000001": "Seizure"}, nil)
}

func findColumn(t *testing.T, r *Report, table, column string) ColumnSummary {
	t.Helper()
	for _, c := range r.Columns {
		if c.Table == table && c.Column == column {
			return c
		}
	}
	t.Fatalf("no summary for %s.%s", table, column)
	return ColumnSummary{}
}

func TestInspectColumnSummaries(t *testing.T) {
	r := Inspect(fixtureTables())

	ids := findColumn(t, r, "condition", "condition_id")
	require.Equal(t, 3, ids.NRows)
	require.Equal(t, 0, ids.NEmpty)
	require.Equal(t, 3, ids.NUnique)

	names := findColumn(t, r, "condition", "name")
	require.Equal(t, 1, names.NEmpty)
	require.InDelta(t, 1.0/3.0, names.PctEmpty(), 1e-12)

	labels := findColumn(t, r, "feature", "label")
	require.Equal(t, 0, labels.NEmpty)
}

func TestInspectPrefixConformance(t *testing.T) {
	r := Inspect(fixtureTables())

	require.Equal(t, map[string]int{"ORPHA": 2, "OMIM": 1}, r.CondPrefixes)
	require.Equal(t, map[string]int{"HP": 2, "MP": 1}, r.FeatPrefixes)
	require.Equal(t, 1, r.NonConformingFeatures)
}

func TestInspectFallbackLabels(t *testing.T) {
	r := Inspect(fixtureTables())
	// HP:0000002 and MP:0000001 carry no external label.
	require.Equal(t, 2, r.FallbackLabels)
}

func TestInspectWeightSummary(t *testing.T) {
	r := Inspect(fixtureTables())

	require.Equal(t, 0.02, r.Weights.Min)
	require.Equal(t, 0.9, r.Weights.Max)
	require.InDelta(t, (0.9+0.02+0.5)/3, r.Weights.Mean, 1e-12)
	require.Greater(t, r.Weights.StdDev, 0.0)
}

func TestInspectDoesNotMutate(t *testing.T) {
	tb := fixtureTables()
	before := *tb
	beforeFeatures := append([]tables.Feature{}, tb.Features...)

	Inspect(tb)

	require.Equal(t, before.FallbackLabels, tb.FallbackLabels)
	require.Equal(t, beforeFeatures, tb.Features)
}

func TestExportCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diagnostics")
	r := Inspect(fixtureTables())
	require.NoError(t, r.ExportCSV(dir))

	data, err := ioutil.ReadFile(filepath.Join(dir, "nulls_columns.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "table,column,n_rows,n_empty,pct_empty,n_unique\n"))
	require.Contains(t, string(data), "condition,name,3,1,")

	data, err = ioutil.ReadFile(filepath.Join(dir, "id_prefixes.csv"))
	require.NoError(t, err)
	require.Contains(t, string(data), "feature,HP,2")
	require.Contains(t, string(data), "condition,ORPHA,2")
}
