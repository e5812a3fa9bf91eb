// Package layer provides the dense block used by the network.
package layer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/DigitNet/internal/activations"
	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// Dense is a fully connected layer.
// The weight matrix is (in+1) x out; its last row is the bias, so a
// forward pass is a single fused multiply against the raw input.
type Dense struct {
	weights *matrix.Matrix
	inSize  int
	outSize int

	// Caches of the most recent Forward, read by backpropagation.
	y *matrix.Matrix // pre-activation
	z *matrix.Matrix // activation output
}

// NewDense creates a dense layer with Xavier/Glorot uniform weights.
// Every element, bias row included, is drawn from [-limit, limit] with
// limit = sqrt(6 / (in + out)).
func NewDense(in, out int, rng *rand.Rand) *Dense {
	limit := XavierLimit(in, out)
	weights := matrix.New(in+1, out)
	data := weights.Data()
	for i := range data {
		data[i] = rng.Float64()*2*limit - limit
	}

	return &Dense{
		weights: weights,
		inSize:  in,
		outSize: out,
	}
}

// FromWeights creates a dense layer owning a copy of w. The input size
// is w.Rows()-1 since the last row is the bias.
func FromWeights(w *matrix.Matrix) *Dense {
	if w.Rows() == 0 {
		panic(&matrix.ShapeError{Op: "FromWeights", A: [2]int{w.Rows(), w.Cols()}, B: [2]int{1, w.Cols()}})
	}
	return &Dense{
		weights: w.Clone(),
		inSize:  w.Rows() - 1,
		outSize: w.Cols(),
	}
}

// XavierLimit returns the Glorot uniform bound for a layer.
func XavierLimit(in, out int) float64 {
	return math.Sqrt(6.0 / float64(in+out))
}

// Forward computes Y = [inputs | 1] * W and Z = act(Y), caching both.
func (d *Dense) Forward(inputs *matrix.Matrix, act activations.Kind) *matrix.Matrix {
	d.y = matrix.MultiplyBias(inputs, d.weights)
	d.z = act.Apply(d.y)
	return d.z
}

// Weights returns the weight matrix. The optimizer updates it in place.
func (d *Dense) Weights() *matrix.Matrix {
	return d.weights
}

// SetWeights replaces the weights with a copy of w, which must have the
// current shape.
func (d *Dense) SetWeights(w *matrix.Matrix) error {
	if !w.SameShape(d.weights) {
		return fmt.Errorf("failed to set weights: %w: got %dx%d, want %dx%d",
			matrix.ErrShapeMismatch, w.Rows(), w.Cols(), d.weights.Rows(), d.weights.Cols())
	}
	d.weights = w.Clone()
	return nil
}

// Preactivation returns Y from the last Forward.
func (d *Dense) Preactivation() *matrix.Matrix {
	return d.y
}

// Output returns Z from the last Forward.
func (d *Dense) Output() *matrix.Matrix {
	return d.z
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}
