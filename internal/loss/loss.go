// Package loss provides the classification loss and accuracy helpers.
package loss

import (
	"math"

	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// CrossEntropy loss for softmax classifiers.
type CrossEntropy struct{}

// Forward computes the mean over the batch of -sum(y_true * log(y_pred)).
// Predictions are not clipped, so a confident wrong answer yields a large
// (possibly infinite) loss. Zero targets are skipped, which keeps a zero
// probability on a wrong class from turning the sum into NaN.
func (c CrossEntropy) Forward(yPred, yTrue *matrix.Matrix) float64 {
	if !yPred.SameShape(yTrue) {
		panic(&matrix.ShapeError{
			Op: "CrossEntropy",
			A:  [2]int{yPred.Rows(), yPred.Cols()},
			B:  [2]int{yTrue.Rows(), yTrue.Cols()},
		})
	}
	if yPred.Rows() == 0 {
		return 0
	}

	pred := yPred.Data()
	var sum float64
	for i, y := range yTrue.Data() {
		if y == 0 {
			continue
		}
		sum -= y * math.Log(pred[i])
	}
	return sum / float64(yPred.Rows())
}

// Backward computes gradient for cross entropy with softmax.
// For cross entropy + softmax, gradient simplifies to (y_pred - y_true).
func (c CrossEntropy) Backward(yPred, yTrue *matrix.Matrix) *matrix.Matrix {
	return matrix.Sub(yPred, yTrue)
}

// Correct counts the rows whose one-hot argmax prediction equals the
// one-hot target row.
func Correct(yPred, yTrue *matrix.Matrix) int {
	if !yPred.SameShape(yTrue) {
		panic(&matrix.ShapeError{
			Op: "Correct",
			A:  [2]int{yPred.Rows(), yPred.Cols()},
			B:  [2]int{yTrue.Rows(), yTrue.Cols()},
		})
	}

	oneHot := yPred.RowArgmaxOneHot()
	n := 0
	for i := 0; i < yTrue.Rows(); i++ {
		if rowsEqual(oneHot.Row(i), yTrue.Row(i)) {
			n++
		}
	}
	return n
}

func rowsEqual(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
