// Package io loads raw annotation sources and persists the pipeline
// artifacts: the three normalized tables as TSV, the four matrices as
// gob-encoded CSR, and the shared index mapping as JSON.
package io

import (
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"phenomatrix/pkg/matrix"
	"phenomatrix/pkg/tables"
)

// Artifact file names within an output directory.
const (
	ConditionFile = "condition.tsv"
	FeatureFile   = "feature.tsv"
	LinkFile      = "link.tsv"
	MappingsFile  = "mappings.json"
)

// MatrixFile returns the on-disk name for a matrix variant.
func MatrixFile(variant string) string {
	return variant + ".csr.gob"
}

// RowError records a raw row that was dropped during loading. Dropped
// rows never abort the run; they are counted and reported. Line counts
// non-comment records from the top of the file, header included.
type RowError struct {
	Line  int
	Error string
}

// Annotation source column names, matched case-insensitively.
const (
	colConditionID   = "database_id"
	colConditionName = "disease_name"
	colFeatureID     = "hpo_id"
	colFrequency     = "frequency"
)

func newTSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader
}

// headerIndex maps lower-cased column names to field positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// LoadAnnotations reads a tab-separated annotation file (one row per
// condition-phenotype link, '#' comment lines ignored). The identifier
// columns are required; a file without them is malformed input and
// fails outright. Rows missing either identifier are dropped and
// returned as RowErrors.
func LoadAnnotations(path string) ([]tables.Row, []RowError, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening annotation file: %w", err)
	}
	defer inputFile.Close()

	reader := newTSVReader(inputFile)

	// First non-comment line is expected to be a header.
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("error reading annotation header: %w", err)
	}
	idx := headerIndex(header)

	var missing []string
	for _, required := range []string{colConditionID, colFeatureID} {
		if _, ok := idx[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%s missing required columns: %s", filepath.Base(path), strings.Join(missing, ", "))
	}

	condIdx := idx[colConditionID]
	featIdx := idx[colFeatureID]
	nameIdx, hasName := idx[colConditionName]
	freqIdx, hasFreq := idx[colFrequency]
	if !hasName {
		nameIdx = -1
	}
	if !hasFreq {
		freqIdx = -1
	}

	var rows []tables.Row
	var rowErrors []RowError
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				rowErrors = append(rowErrors, RowError{Line: line, Error: err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("error reading annotation data: %w", err)
		}
		condID := field(record, condIdx)
		featID := field(record, featIdx)
		if condID == "" || featID == "" {
			rowErrors = append(rowErrors, RowError{Line: line, Error: "missing condition or feature identifier"})
			continue
		}
		rows = append(rows, tables.Row{
			ConditionID:   condID,
			ConditionName: field(record, nameIdx),
			FeatureID:     featID,
			Frequency:     field(record, freqIdx),
		})
	}

	return rows, rowErrors, nil
}

// LoadLabels collects feature labels from tab-separated lookup files
// with hpo_id and hpo_name columns. Files lacking those columns are
// skipped, as are placeholder names. The first mapping for an ID wins.
func LoadLabels(paths ...string) (map[string]string, error) {
	labels := map[string]string{}
	for _, path := range paths {
		inputFile, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error opening label file: %w", err)
		}
		if err := addLabels(labels, inputFile); err != nil {
			inputFile.Close()
			return nil, fmt.Errorf("error reading labels from %s: %w", filepath.Base(path), err)
		}
		inputFile.Close()
	}
	return labels, nil
}

func addLabels(labels map[string]string, r io.Reader) error {
	reader := newTSVReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	idx := headerIndex(header)
	idIdx, okID := idx[colFeatureID]
	nameIdx, okName := idx["hpo_name"]
	if !okID || !okName {
		return nil // not a label source, skip
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				continue
			}
			return err
		}
		id := field(record, idIdx)
		name := field(record, nameIdx)
		if !strings.HasPrefix(id, "HP:") || name == "" || name == "-" {
			continue
		}
		if _, ok := labels[id]; !ok {
			labels[id] = name
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeTSV(path string, header []string, rows [][]string) error {
	outputFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer outputFile.Close()

	writer := csv.NewWriter(outputFile)
	writer.Comma = '\t'
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTables writes the three normalized tables into dir.
func WriteTables(dir string, t *tables.Tables) error {
	condRows := make([][]string, len(t.Conditions))
	for i, c := range t.Conditions {
		condRows[i] = []string{c.ID, c.Name}
	}
	if err := writeTSV(filepath.Join(dir, ConditionFile), []string{"condition_id", "name"}, condRows); err != nil {
		return err
	}

	featRows := make([][]string, len(t.Features))
	for i, f := range t.Features {
		featRows[i] = []string{f.ID, f.Label, formatFloat(f.IC)}
	}
	if err := writeTSV(filepath.Join(dir, FeatureFile), []string{"feature_id", "label", "ic"}, featRows); err != nil {
		return err
	}

	linkRows := make([][]string, len(t.Links))
	for i, l := range t.Links {
		linkRows[i] = []string{l.ConditionID, l.FeatureID, formatFloat(l.Weight)}
	}
	return writeTSV(filepath.Join(dir, LinkFile), []string{"condition_id", "feature_id", "weight"}, linkRows)
}

func readTSV(path string, wantFields int) ([][]string, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer inputFile.Close()

	reader := newTSVReader(inputFile)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	for _, record := range all[1:] {
		if len(record) < wantFields {
			return nil, fmt.Errorf("%s: short record, want %d fields", path, wantFields)
		}
	}
	return all[1:], nil
}

// LoadTables reads back tables written by WriteTables.
func LoadTables(dir string) (*tables.Tables, error) {
	condRows, err := readTSV(filepath.Join(dir, ConditionFile), 2)
	if err != nil {
		return nil, err
	}
	featRows, err := readTSV(filepath.Join(dir, FeatureFile), 3)
	if err != nil {
		return nil, err
	}
	linkRows, err := readTSV(filepath.Join(dir, LinkFile), 3)
	if err != nil {
		return nil, err
	}

	t := &tables.Tables{}
	for _, r := range condRows {
		t.Conditions = append(t.Conditions, tables.Condition{ID: r[0], Name: r[1]})
	}
	for _, r := range featRows {
		ic, err := strconv.ParseFloat(r[2], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing ic for feature %s: %w", r[0], err)
		}
		f := tables.Feature{ID: r[0], Label: r[1], IC: ic}
		if f.Label == f.ID {
			t.FallbackLabels++
		}
		t.Features = append(t.Features, f)
	}
	for _, r := range linkRows {
		w, err := strconv.ParseFloat(r[2], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing weight for link %s/%s: %w", r[0], r[1], err)
		}
		t.Links = append(t.Links, tables.Link{ConditionID: r[0], FeatureID: r[1], Weight: w})
	}
	return t, nil
}

// SaveMatrix gob-encodes a CSR matrix to the writer.
func SaveMatrix(m *matrix.CSR, writer io.Writer) error {
	encoder := gob.NewEncoder(writer)
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("error encoding matrix: %w", err)
	}
	return nil
}

// LoadMatrix decodes a CSR matrix written by SaveMatrix.
func LoadMatrix(input io.Reader) (*matrix.CSR, error) {
	decoder := gob.NewDecoder(input)
	m := matrix.CSR{}
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("error decoding matrix: %w", err)
	}
	return &m, nil
}

// WriteMatrixSet writes the four matrix variants into dir. Callers
// assemble the full set before calling, so partial sets are never
// written mid-build.
func WriteMatrixSet(dir string, s *matrix.Set) error {
	for variant, m := range s.Variants() {
		path := filepath.Join(dir, MatrixFile(variant))
		outputFile, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("error creating matrix file %s: %w", path, err)
		}
		if err := SaveMatrix(m, outputFile); err != nil {
			outputFile.Close()
			return err
		}
		if err := outputFile.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Mappings is the shared index artifact accompanying the matrices.
type Mappings struct {
	CondIDs []string               `json:"cond_ids"`
	FeatIDs []string               `json:"feat_ids"`
	Meta    map[string]matrix.Meta `json:"meta"`
}

// WriteMappings writes the mapping artifact as indented JSON.
func WriteMappings(path string, m Mappings) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding mappings: %w", err)
	}
	if err := ioutil.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("error writing mappings: %w", err)
	}
	return nil
}

// LoadMappings reads back a mapping artifact.
func LoadMappings(path string) (Mappings, error) {
	var m Mappings
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("error reading mappings: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("error decoding mappings: %w", err)
	}
	return m, nil
}
