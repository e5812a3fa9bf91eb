// Package loss provides unit tests for the classification loss.
package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// TestCrossEntropyForward tests the batch-averaged loss.
func TestCrossEntropyForward(t *testing.T) {
	yPred := matrix.FromRows([][]float64{
		{0.7, 0.2, 0.1},
		{0.25, 0.5, 0.25},
	})
	yTrue := matrix.FromRows([][]float64{
		{1, 0, 0},
		{0, 0, 1},
	})

	got := CrossEntropy{}.Forward(yPred, yTrue)
	want := (-math.Log(0.7) - math.Log(0.25)) / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Forward = %v, want %v", got, want)
	}
}

// TestCrossEntropyPerfectPrediction tests zero loss on exact predictions.
func TestCrossEntropyPerfectPrediction(t *testing.T) {
	y := matrix.FromRows([][]float64{{0, 1}, {1, 0}})
	assert.Zero(t, CrossEntropy{}.Forward(y, y))
}

// TestCrossEntropyNoClamp tests that a zero probability on the true class
// is not clipped away.
func TestCrossEntropyNoClamp(t *testing.T) {
	yPred := matrix.FromRows([][]float64{{1, 0}})
	yTrue := matrix.FromRows([][]float64{{0, 1}})
	assert.True(t, math.IsInf(CrossEntropy{}.Forward(yPred, yTrue), 1))

	// A zero probability on a wrong class contributes nothing.
	assert.Zero(t, CrossEntropy{}.Forward(yTrue, yTrue))
}

// TestCrossEntropyShapeMismatch tests the shape precondition.
func TestCrossEntropyShapeMismatch(t *testing.T) {
	assert.Panics(t, func() {
		CrossEntropy{}.Forward(matrix.New(2, 3), matrix.New(3, 2))
	})
}

// TestCrossEntropyBackward tests gradient is y_pred - y_true.
func TestCrossEntropyBackward(t *testing.T) {
	yPred := matrix.FromRows([][]float64{{0.7, 0.2, 0.1}})
	yTrue := matrix.FromRows([][]float64{{0, 1, 0}})

	grad := CrossEntropy{}.Backward(yPred, yTrue)
	assert.InDeltaSlice(t, []float64{0.7, -0.8, 0.1}, grad.Data(), 1e-15)
}

// TestCorrect tests accuracy counting by one-hot argmax.
func TestCorrect(t *testing.T) {
	yPred := matrix.FromRows([][]float64{
		{0.1, 0.8, 0.1},
		{0.6, 0.3, 0.1},
		{0.4, 0.4, 0.2},
		{0.2, 0.2, 0.6},
	})
	yTrue := matrix.FromRows([][]float64{
		{0, 1, 0},
		{0, 0, 1},
		{1, 0, 0}, // tie goes to the first column
		{0, 0, 1},
	})
	assert.Equal(t, 3, Correct(yPred, yTrue))
}
