// Package matrix provides a compressed-sparse-row matrix and the
// assembler that derives the four weight matrix variants of a run.
package matrix

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// CSR is a compressed-sparse-row matrix: Indptr[i]..Indptr[i+1] bounds
// the column indices and values of row i. Column indices are strictly
// increasing within a row.
type CSR struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float64
}

type coo struct {
	row, col int
	val      float64
}

// FromCOO builds a CSR matrix from coordinate triplets. Entries are
// sorted row-major and duplicate coordinates are summed, matching the
// usual COO-to-CSR conversion semantics.
func FromCOO(rows, cols []int, data []float64, nRows, nCols int) *CSR {
	entries := make([]coo, len(data))
	for i := range data {
		entries[i] = coo{row: rows[i], col: cols[i], val: data[i]}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].row != entries[j].row {
			return entries[i].row < entries[j].row
		}
		return entries[i].col < entries[j].col
	})

	m := &CSR{
		Rows:   nRows,
		Cols:   nCols,
		Indptr: make([]int, nRows+1),
	}
	prevRow := -1
	for _, e := range entries {
		if k := len(m.Data) - 1; k >= 0 && prevRow == e.row && m.Indices[k] == e.col {
			m.Data[k] += e.val
			continue
		}
		m.Indices = append(m.Indices, e.col)
		m.Data = append(m.Data, e.val)
		m.Indptr[e.row+1]++
		prevRow = e.row
	}
	for i := 1; i <= nRows; i++ {
		m.Indptr[i] += m.Indptr[i-1]
	}
	return m
}

// NNZ returns the number of explicitly stored entries.
func (m *CSR) NNZ() int { return len(m.Data) }

// At returns the value at (i, j), zero when the entry is not stored.
func (m *CSR) At(i, j int) float64 {
	lo, hi := m.Indptr[i], m.Indptr[i+1]
	k := lo + sort.SearchInts(m.Indices[lo:hi], j)
	if k < hi && m.Indices[k] == j {
		return m.Data[k]
	}
	return 0
}

// Row returns the column indices and values of row i. The slices alias
// the matrix storage; callers must not modify them.
func (m *CSR) Row(i int) ([]int, []float64) {
	lo, hi := m.Indptr[i], m.Indptr[i+1]
	return m.Indices[lo:hi], m.Data[lo:hi]
}

// Clone returns a deep copy with the same sparsity pattern and values.
func (m *CSR) Clone() *CSR {
	out := &CSR{
		Rows:    m.Rows,
		Cols:    m.Cols,
		Indptr:  make([]int, len(m.Indptr)),
		Indices: make([]int, len(m.Indices)),
		Data:    make([]float64, len(m.Data)),
	}
	copy(out.Indptr, m.Indptr)
	copy(out.Indices, m.Indices)
	copy(out.Data, m.Data)
	return out
}

// RowNormalizeL2 returns a copy with every row scaled to unit Euclidean
// norm. Rows with zero norm are left exactly zero rather than dividing
// by zero. The sparsity pattern is unchanged.
func (m *CSR) RowNormalizeL2() *CSR {
	out := m.Clone()
	for i := 0; i < out.Rows; i++ {
		lo, hi := out.Indptr[i], out.Indptr[i+1]
		row := out.Data[lo:hi]
		norm := floats.Norm(row, 2)
		if norm == 0 {
			continue
		}
		floats.Scale(1/norm, row)
	}
	return out
}

// ScaleColumns returns a copy with every stored entry multiplied by
// scale[column]. scale must have length Cols.
func (m *CSR) ScaleColumns(scale []float64) *CSR {
	out := m.Clone()
	for k, j := range out.Indices {
		out.Data[k] *= scale[j]
	}
	return out
}
