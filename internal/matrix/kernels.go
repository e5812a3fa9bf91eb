package matrix

import (
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/DigitNet/internal/parallel"
)

// kernelConfig controls how the multiply kernels split output rows.
var kernelConfig = parallel.DefaultConfig()

// SetParallelism replaces the row partitioning used by the multiply
// kernels. It must not be called while a kernel is running.
func SetParallelism(cfg parallel.Config) {
	kernelConfig = cfg
}

// Multiply returns a*b.
func Multiply(a, b *Matrix) *Matrix {
	if a.cols != b.rows {
		shapePanic("Multiply", a.rows, a.cols, b.rows, b.cols)
	}
	c := New(a.rows, b.cols)
	if b.cols == 0 {
		return c
	}
	parallel.For(a.rows, func(start, end int) {
		for i := start; i < end; i++ {
			out := c.Row(i)
			for k, aik := range a.Row(i) {
				floats.AddScaled(out, aik, b.Row(k))
			}
		}
	}, kernelConfig)
	return c
}

// MultiplyBias computes x*w where x (batch x n) is implicitly augmented
// with a trailing column of ones and w is (n+1) x m with the bias as its
// last row. The bias row is added after the weighted sum.
func MultiplyBias(x, w *Matrix) *Matrix {
	if w.rows != x.cols+1 {
		shapePanic("MultiplyBias", x.rows, x.cols, w.rows, w.cols)
	}
	c := New(x.rows, w.cols)
	if w.cols == 0 {
		return c
	}
	bias := w.Row(x.cols)
	parallel.For(x.rows, func(start, end int) {
		for i := start; i < end; i++ {
			out := c.Row(i)
			for k, xik := range x.Row(i) {
				floats.AddScaled(out, xik, w.Row(k))
			}
			floats.Add(out, bias)
		}
	}, kernelConfig)
	return c
}

// BackpropBias propagates dz (batch x m) through w ((n+1) x m), returning
// dz * w[:n]^T (batch x n). The bias row receives no input gradient.
func BackpropBias(dz, w *Matrix) *Matrix {
	if dz.cols != w.cols || w.rows == 0 {
		shapePanic("BackpropBias", dz.rows, dz.cols, w.rows, w.cols)
	}
	n := w.rows - 1
	c := New(dz.rows, n)
	parallel.For(dz.rows, func(start, end int) {
		for i := start; i < end; i++ {
			dzRow := dz.Row(i)
			out := c.Row(i)
			for j := range out {
				out[j] = floats.Dot(dzRow, w.Row(j))
			}
		}
	}, kernelConfig)
	return c
}

// GradientBias returns [x | 1]^T * dz, the weight gradient of a bias-row
// layer summed over the batch. x is batch x n and dz is batch x m; the
// result is (n+1) x m.
func GradientBias(x, dz *Matrix) *Matrix {
	if x.rows != dz.rows {
		shapePanic("GradientBias", x.rows, x.cols, dz.rows, dz.cols)
	}
	c := New(x.cols+1, dz.cols)
	if dz.cols == 0 {
		return c
	}
	parallel.For(c.rows, func(start, end int) {
		for j := start; j < end; j++ {
			out := c.Row(j)
			for i := 0; i < x.rows; i++ {
				if j == x.cols {
					floats.Add(out, dz.Row(i))
					continue
				}
				floats.AddScaled(out, x.data[i*x.cols+j], dz.Row(i))
			}
		}
	}, kernelConfig)
	return c
}
