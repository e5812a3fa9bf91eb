// Package activations provides the layer activation functions.
package activations

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// Kind selects a layer activation. The set is closed.
type Kind int

const (
	// ReLU computes max(0, x) elementwise.
	ReLU Kind = iota
	// Softmax normalizes each row into a probability distribution.
	Softmax
)

var table = [...]struct {
	name  string
	apply func(*matrix.Matrix) *matrix.Matrix
}{
	ReLU:    {"ReLU", relu},
	Softmax: {"Softmax", softmax},
}

// Apply returns the activation of y.
func (k Kind) Apply(y *matrix.Matrix) *matrix.Matrix {
	if k < 0 || int(k) >= len(table) {
		panic(fmt.Sprintf("activations: unknown kind %d", int(k)))
	}
	return table[k].apply(y)
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(table) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return table[k].name
}

// ReLUDerivative returns 1 if x > 0, else 0
func ReLUDerivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func relu(y *matrix.Matrix) *matrix.Matrix {
	return y.Apply(func(x float64) float64 {
		return math.Max(0, x)
	})
}

// softmax subtracts the row maximum before exponentiating so large
// logits cannot overflow.
func softmax(y *matrix.Matrix) *matrix.Matrix {
	out := matrix.New(y.Dims())
	for i := 0; i < y.Rows(); i++ {
		in := y.Row(i)
		row := out.Row(i)
		if len(in) == 0 {
			continue
		}

		maxVal := in[0]
		for _, v := range in[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for j, v := range in {
			row[j] = math.Exp(v - maxVal)
			sum += row[j]
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return out
}
