// Package matrix provides the dense row-major matrix used by every layer.
package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense rows x cols matrix stored row-major.
// Operations return new matrices unless their name ends in InPlace.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// New returns a zero matrix of the given shape.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimension %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// NewFromData wraps data, which must hold exactly rows*cols values.
// The matrix takes ownership of the slice.
func NewFromData(rows, cols int, data []float64) *Matrix {
	if len(data) != rows*cols {
		shapePanic("NewFromData", rows, cols, 1, len(data))
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// FromRows copies a slice of equally sized rows.
func FromRows(rows [][]float64) *Matrix {
	if len(rows) == 0 {
		return New(0, 0)
	}
	cols := len(rows[0])
	m := New(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			shapePanic("FromRows", i, len(row), 0, cols)
		}
		copy(m.data[i*cols:], row)
	}
	return m
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Dims returns rows and columns.
func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Set stores v at (i, j).
func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// Data returns the backing slice. Writes go straight to the matrix.
func (m *Matrix) Data() []float64 {
	return m.data
}

// Row returns a view of row i.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(c.data, m.data)
	return c
}

// Fill sets every element to v.
func (m *Matrix) Fill(v float64) {
	for i := range m.data {
		m.data[i] = v
	}
}

// SameShape reports whether m and b have identical dimensions.
func (m *Matrix) SameShape(b *Matrix) bool {
	return m.rows == b.rows && m.cols == b.cols
}

// Equal reports exact elementwise equality after a shape match.
func (m *Matrix) Equal(b *Matrix) bool {
	return m.SameShape(b) && floats.Equal(m.data, b.data)
}

// Dense returns a gonum view sharing m's storage.
func (m *Matrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.rows, m.cols, m.data)
}

// String formats the matrix one row per line.
func (m *Matrix) String() string {
	if m.rows == 0 || m.cols == 0 {
		return "[]"
	}
	return fmt.Sprintf("%v", mat.Formatted(m.Dense(), mat.Squeeze()))
}
