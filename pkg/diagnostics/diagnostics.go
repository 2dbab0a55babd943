// Package diagnostics runs structural sanity checks over the
// normalized tables: empty-value rates, identifier prefix conformance
// and label fallback counts. It only reports; findings are advisory
// and never fail the pipeline.
package diagnostics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"phenomatrix/pkg/tables"
)

// FeaturePrefix is the namespace prefix feature identifiers are
// expected to carry.
const FeaturePrefix = "HP"

// ColumnSummary describes one column of one table.
type ColumnSummary struct {
	Table   string
	Column  string
	NRows   int
	NEmpty  int
	NUnique int
}

// PctEmpty returns the empty-value rate, zero for empty tables.
func (c ColumnSummary) PctEmpty() float64 {
	if c.NRows == 0 {
		return 0
	}
	return float64(c.NEmpty) / float64(c.NRows)
}

// WeightSummary holds the moments of the Link weight column.
type WeightSummary struct {
	Min, Max, Mean, StdDev float64
}

// Report is the result of one inspection pass.
type Report struct {
	Columns []ColumnSummary

	// CondPrefixes and FeatPrefixes count IDs per namespace prefix
	// (the part before the first ':').
	CondPrefixes map[string]int
	FeatPrefixes map[string]int

	// NonConformingFeatures counts feature IDs without FeaturePrefix.
	NonConformingFeatures int

	// FallbackLabels counts features whose label equals their ID.
	FallbackLabels int

	Weights WeightSummary
}

func column(table, name string, values []string) ColumnSummary {
	c := ColumnSummary{Table: table, Column: name, NRows: len(values)}
	unique := map[string]struct{}{}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			c.NEmpty++
			continue
		}
		unique[v] = struct{}{}
	}
	c.NUnique = len(unique)
	return c
}

func prefix(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[:i]
	}
	return id
}

// Inspect runs all checks over the tables. It never mutates them.
func Inspect(t *tables.Tables) *Report {
	r := &Report{
		CondPrefixes: map[string]int{},
		FeatPrefixes: map[string]int{},
	}

	condIDs := make([]string, len(t.Conditions))
	condNames := make([]string, len(t.Conditions))
	for i, c := range t.Conditions {
		condIDs[i] = c.ID
		condNames[i] = c.Name
		r.CondPrefixes[prefix(c.ID)]++
	}

	featIDs := make([]string, len(t.Features))
	featLabels := make([]string, len(t.Features))
	for i, f := range t.Features {
		featIDs[i] = f.ID
		featLabels[i] = f.Label
		p := prefix(f.ID)
		r.FeatPrefixes[p]++
		if p != FeaturePrefix {
			r.NonConformingFeatures++
		}
		if f.Label == f.ID {
			r.FallbackLabels++
		}
	}

	linkConds := make([]string, len(t.Links))
	linkFeats := make([]string, len(t.Links))
	weights := make([]float64, len(t.Links))
	for i, l := range t.Links {
		linkConds[i] = l.ConditionID
		linkFeats[i] = l.FeatureID
		weights[i] = l.Weight
	}

	r.Columns = []ColumnSummary{
		column("condition", "condition_id", condIDs),
		column("condition", "name", condNames),
		column("feature", "feature_id", featIDs),
		column("feature", "label", featLabels),
		column("link", "condition_id", linkConds),
		column("link", "feature_id", linkFeats),
	}

	if len(weights) > 0 {
		r.Weights.Min, r.Weights.Max = weights[0], weights[0]
		for _, w := range weights {
			if w < r.Weights.Min {
				r.Weights.Min = w
			}
			if w > r.Weights.Max {
				r.Weights.Max = w
			}
		}
		r.Weights.Mean = stat.Mean(weights, nil)
		r.Weights.StdDev = stat.StdDev(weights, nil)
	}

	return r
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Log writes the report through the structured logger. Output order is
// deterministic.
func (r *Report) Log() {
	for _, c := range r.Columns {
		log.Info().
			Str("Table", c.Table).
			Str("Column", c.Column).
			Int("Rows", c.NRows).
			Int("Empty", c.NEmpty).
			Float64("PctEmpty", c.PctEmpty()).
			Int("Unique", c.NUnique).
			Msg("")
	}
	for _, p := range sortedKeys(r.CondPrefixes) {
		log.Info().Str("ConditionPrefix", p).Int("Count", r.CondPrefixes[p]).Msg("")
	}
	for _, p := range sortedKeys(r.FeatPrefixes) {
		log.Info().Str("FeaturePrefix", p).Int("Count", r.FeatPrefixes[p]).Msg("")
	}
	log.Info().
		Int("NonConformingFeatures", r.NonConformingFeatures).
		Int("FallbackLabels", r.FallbackLabels).
		Msg("")
	log.Info().
		Float64("WeightMin", r.Weights.Min).
		Float64("WeightMax", r.Weights.Max).
		Float64("WeightMean", r.Weights.Mean).
		Float64("WeightStdDev", r.Weights.StdDev).
		Msg("")
}

// ExportCSV writes the column summaries and prefix counts as CSV files
// into dir, creating it if needed.
func (r *Report) ExportCSV(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating diagnostics dir: %w", err)
	}

	rows := [][]string{{"table", "column", "n_rows", "n_empty", "pct_empty", "n_unique"}}
	for _, c := range r.Columns {
		rows = append(rows, []string{
			c.Table, c.Column,
			strconv.Itoa(c.NRows),
			strconv.Itoa(c.NEmpty),
			strconv.FormatFloat(c.PctEmpty(), 'g', -1, 64),
			strconv.Itoa(c.NUnique),
		})
	}
	if err := writeCSV(filepath.Join(dir, "nulls_columns.csv"), rows); err != nil {
		return err
	}

	rows = [][]string{{"table", "prefix", "count"}}
	for _, p := range sortedKeys(r.CondPrefixes) {
		rows = append(rows, []string{"condition", p, strconv.Itoa(r.CondPrefixes[p])})
	}
	for _, p := range sortedKeys(r.FeatPrefixes) {
		rows = append(rows, []string{"feature", p, strconv.Itoa(r.FeatPrefixes[p])})
	}
	return writeCSV(filepath.Join(dir, "id_prefixes.csv"), rows)
}

func writeCSV(path string, rows [][]string) error {
	outputFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer outputFile.Close()

	writer := csv.NewWriter(outputFile)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
