package matrix

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is the root of every shape precondition failure.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError describes the operands of a failed shape check.
// Kernels panic with a *ShapeError; callers that can recover test it
// with errors.Is(err, ErrShapeMismatch).
type ShapeError struct {
	Op   string
	A, B [2]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("matrix: %s in %s: %dx%d and %dx%d",
		ErrShapeMismatch, e.Op, e.A[0], e.A[1], e.B[0], e.B[1])
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func shapePanic(op string, ar, ac, br, bc int) {
	panic(&ShapeError{Op: op, A: [2]int{ar, ac}, B: [2]int{br, bc}})
}

func mustSameShape(op string, a, b *Matrix) {
	if a.rows != b.rows || a.cols != b.cols {
		shapePanic(op, a.rows, a.cols, b.rows, b.cols)
	}
}
