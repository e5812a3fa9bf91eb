package matrix

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Scale returns s*m.
func (m *Matrix) Scale(s float64) *Matrix {
	c := New(m.rows, m.cols)
	floats.ScaleTo(c.data, s, m.data)
	return c
}

// ScaleInPlace multiplies every element of m by s.
func (m *Matrix) ScaleInPlace(s float64) *Matrix {
	floats.Scale(s, m.data)
	return m
}

// Hadamard returns the elementwise product of a and b.
func Hadamard(a, b *Matrix) *Matrix {
	mustSameShape("Hadamard", a, b)
	c := New(a.rows, a.cols)
	floats.MulTo(c.data, a.data, b.data)
	return c
}

// Add returns a+b.
func Add(a, b *Matrix) *Matrix {
	mustSameShape("Add", a, b)
	c := New(a.rows, a.cols)
	floats.AddTo(c.data, a.data, b.data)
	return c
}

// Sub returns a-b.
func Sub(a, b *Matrix) *Matrix {
	mustSameShape("Sub", a, b)
	c := New(a.rows, a.cols)
	floats.SubTo(c.data, a.data, b.data)
	return c
}

// AddInPlace accumulates b into m.
func (m *Matrix) AddInPlace(b *Matrix) *Matrix {
	mustSameShape("AddInPlace", m, b)
	floats.Add(m.data, b.data)
	return m
}

// SubInPlace subtracts b from m.
func (m *Matrix) SubInPlace(b *Matrix) *Matrix {
	mustSameShape("SubInPlace", m, b)
	floats.Sub(m.data, b.data)
	return m
}

// Apply returns f applied to every element.
func (m *Matrix) Apply(f func(float64) float64) *Matrix {
	c := New(m.rows, m.cols)
	for i, v := range m.data {
		c.data[i] = f(v)
	}
	return c
}

// T returns the transpose.
func (m *Matrix) T() *Matrix {
	c := New(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j, v := range row {
			c.data[j*m.rows+i] = v
		}
	}
	return c
}

// AddBiasColumn returns m with a trailing column of ones.
func (m *Matrix) AddBiasColumn() *Matrix {
	c := New(m.rows, m.cols+1)
	for i := 0; i < m.rows; i++ {
		copy(c.data[i*c.cols:], m.Row(i))
		c.data[i*c.cols+m.cols] = 1
	}
	return c
}

// AddBiasColumnT returns the transpose of m.AddBiasColumn() without
// building the intermediate matrix.
func (m *Matrix) AddBiasColumnT() *Matrix {
	c := New(m.cols+1, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			c.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
		c.data[m.cols*m.rows+i] = 1
	}
	return c
}

// RemoveBiasColumn drops the last column.
func (m *Matrix) RemoveBiasColumn() *Matrix {
	if m.cols == 0 {
		shapePanic("RemoveBiasColumn", m.rows, m.cols, m.rows, 1)
	}
	c := New(m.rows, m.cols-1)
	for i := 0; i < m.rows; i++ {
		copy(c.Row(i), m.data[i*m.cols:i*m.cols+c.cols])
	}
	return c
}

// RemoveBiasRow drops the last row, which holds the bias of a weight matrix.
func (m *Matrix) RemoveBiasRow() *Matrix {
	if m.rows == 0 {
		shapePanic("RemoveBiasRow", m.rows, m.cols, 1, m.cols)
	}
	c := New(m.rows-1, m.cols)
	copy(c.data, m.data[:c.rows*c.cols])
	return c
}

// TRemoveBias transposes a weight matrix and drops its bias row,
// giving cols x (rows-1).
func (m *Matrix) TRemoveBias() *Matrix {
	if m.rows == 0 {
		shapePanic("TRemoveBias", m.rows, m.cols, 1, m.cols)
	}
	n := m.rows - 1
	c := New(m.cols, n)
	for i := 0; i < n; i++ {
		for j := 0; j < m.cols; j++ {
			c.data[j*n+i] = m.data[i*m.cols+j]
		}
	}
	return c
}

// DropoutMask applies inverted dropout: each element is zeroed with
// probability p and otherwise divided by 1-p. One draw is taken from rng
// per element, in row-major order.
func (m *Matrix) DropoutMask(rng *rand.Rand, p float64) *Matrix {
	keep := 1 - p
	c := New(m.rows, m.cols)
	for i, v := range m.data {
		if rng.Float64() < p {
			continue
		}
		c.data[i] = v / keep
	}
	return c
}

// RowArgmaxOneHot returns a matrix with a single 1 per row at the
// column of the row maximum. Ties go to the lowest column.
func (m *Matrix) RowArgmaxOneHot() *Matrix {
	c := New(m.rows, m.cols)
	if m.cols == 0 {
		return c
	}
	for i := 0; i < m.rows; i++ {
		c.data[i*m.cols+floats.MaxIdx(m.Row(i))] = 1
	}
	return c
}

// RowArgmaxIndex returns the column of the maximum of a single-row matrix.
func (m *Matrix) RowArgmaxIndex() int {
	if m.rows != 1 || m.cols == 0 {
		shapePanic("RowArgmaxIndex", m.rows, m.cols, 1, max(m.cols, 1))
	}
	return floats.MaxIdx(m.data)
}
