// Package pkg wires the pipeline stages together: raw annotation rows
// are normalized into tables, indexed, and assembled into the four
// sparse matrix variants. Each stage fully consumes its input before
// the next begins, and a Result is a pure function of the input files
// and parameters.
package pkg

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"phenomatrix/pkg/index"
	"phenomatrix/pkg/io"
	"phenomatrix/pkg/matrix"
	"phenomatrix/pkg/tables"
)

// Parameters configures one pipeline run.
type Parameters struct {
	AnnotationFile string
	LabelFiles     []string
	Order          index.Order

	// IC overrides the scoring function; nil means tables.LaplaceIC.
	IC tables.ICFunc
}

// Result bundles the artifacts of one run.
type Result struct {
	Tables    *tables.Tables
	Index     *index.Map
	Matrices  *matrix.Set
	RowErrors []io.RowError
}

func logRowErrors(errors []io.RowError) {
	for _, err := range errors {
		log.Warn().Msgf("Dropped row at line %d: %s", err.Line, err.Error)
	}
	if len(errors) > 0 {
		log.Warn().Int("Dropped", len(errors)).Msg("Rows dropped during loading")
	}
}

// BuildTables loads the annotation and label sources and normalizes
// them into the three tables. Dropped rows are logged and returned;
// only a malformed source (missing identifier columns) is an error.
func BuildTables(annotationFile string, labelFiles []string, ic tables.ICFunc) (*tables.Tables, []io.RowError, error) {
	rows, rowErrors, err := io.LoadAnnotations(annotationFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading annotation data: %w", err)
	}
	logRowErrors(rowErrors)

	labels, err := io.LoadLabels(labelFiles...)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("Labels", len(labels)).Msg("Loaded feature labels")

	t := tables.Normalize(rows, labels, ic)
	log.Info().
		Int("Conditions", len(t.Conditions)).
		Int("Features", len(t.Features)).
		Int("Links", len(t.Links)).
		Int("FallbackLabels", t.FallbackLabels).
		Msg("Normalized tables")
	return t, rowErrors, nil
}

// Matrices indexes the tables and assembles the four matrix variants.
func Matrices(t *tables.Tables, order index.Order) (*index.Map, *matrix.Set, error) {
	if len(t.Links) == 0 {
		return nil, nil, fmt.Errorf("no links to assemble")
	}
	im := index.New(t, order)
	set, err := matrix.Assemble(t.Links, im, t.FeatureIC())
	if err != nil {
		return nil, nil, err
	}
	for variant, meta := range set.Metas() {
		log.Debug().
			Str("Variant", variant).
			Int("Rows", meta.NRows).
			Int("Cols", meta.NCols).
			Int("NNZ", meta.NNZ).
			Msg("Assembled matrix")
	}
	return im, set, nil
}

// Run executes the full pipeline.
func Run(params Parameters) (*Result, error) {
	t, rowErrors, err := BuildTables(params.AnnotationFile, params.LabelFiles, params.IC)
	if err != nil {
		return nil, err
	}
	im, set, err := Matrices(t, params.Order)
	if err != nil {
		return nil, err
	}
	return &Result{Tables: t, Index: im, Matrices: set, RowErrors: rowErrors}, nil
}

// WriteArtifacts persists every artifact of a run into dir: the three
// tables, the four matrices and the mapping file. The matrices are
// already fully assembled by the time this runs, so a failure never
// leaves a partially built set behind.
func WriteArtifacts(dir string, r *Result) error {
	if err := io.WriteTables(dir, r.Tables); err != nil {
		return err
	}
	return WriteMatrixArtifacts(dir, r.Index, r.Matrices)
}

// WriteMatrixArtifacts persists the matrix set and its mapping file.
func WriteMatrixArtifacts(dir string, im *index.Map, set *matrix.Set) error {
	if err := io.WriteMatrixSet(dir, set); err != nil {
		return err
	}
	return io.WriteMappings(filepath.Join(dir, io.MappingsFile), io.Mappings{
		CondIDs: im.CondIDs(),
		FeatIDs: im.FeatIDs(),
		Meta:    set.Metas(),
	})
}
