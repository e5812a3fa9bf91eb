// Package opt provides optimization algorithms.
package opt

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
	"github.com/FlavioCFOliveira/DigitNet/internal/net"
)

// Model exposes trainable parameters in a stable order.
type Model interface {
	Parameters() []net.Parameter
}

// Optimizer updates a model's weights in place from its gradients.
type Optimizer interface {
	Step(m Model)
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// Step applies W = W - lr * dW to every parameter.
func (s SGD) Step(m Model) {
	for _, p := range m.Parameters() {
		checkParameter("SGD", p.Weights, p.Gradient)
		s.StepInPlace(p.Weights.Data(), p.Gradient.Data())
	}
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s SGD) StepInPlace(params, gradients []float64) {
	floats.AddScaled(params, -s.LearningRate, gradients)
}

// Adam optimizer with per-parameter first and second moments.
//
//	m = beta1*m + (1-beta1)*g
//	v = beta2*v + (1-beta2)*g*g
//	w -= lr * (m/(1-beta1^t)) / (sqrt(v/(1-beta2^t)) + eps)
//
// A single step counter t is shared by all parameters.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	m []*matrix.Matrix
	v []*matrix.Matrix
	t int
}

// NewAdam creates an Adam optimizer for model with default decay rates.
// Moment buffers are allocated once, shaped like model's parameters, and
// live as long as the optimizer.
func NewAdam(model Model, learningRate float64) *Adam {
	params := model.Parameters()
	a := &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		m:            make([]*matrix.Matrix, len(params)),
		v:            make([]*matrix.Matrix, len(params)),
	}
	for k, p := range params {
		a.m[k] = matrix.New(p.Weights.Dims())
		a.v[k] = matrix.New(p.Weights.Dims())
	}
	return a
}

// Step updates every parameter in the order returned by m.Parameters,
// then advances the shared step counter.
func (a *Adam) Step(m Model) {
	params := m.Parameters()
	if len(params) != len(a.m) {
		panic(&matrix.ShapeError{Op: "Adam", A: [2]int{len(params), 1}, B: [2]int{len(a.m), 1}})
	}

	t := float64(a.t + 1)
	biasCorrection1 := 1 - math.Pow(a.Beta1, t)
	biasCorrection2 := 1 - math.Pow(a.Beta2, t)

	for k, p := range params {
		checkParameter("Adam", p.Weights, p.Gradient)
		checkParameter("Adam", p.Weights, a.m[k])
		a.update(p.Weights.Data(), p.Gradient.Data(), a.m[k].Data(), a.v[k].Data(),
			biasCorrection1, biasCorrection2)
	}
	a.t++
}

func (a *Adam) update(w, g, m, v []float64, biasCorrection1, biasCorrection2 float64) {
	for i, gi := range g {
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*gi
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*gi*gi

		mHat := m[i] / biasCorrection1
		vHat := v[i] / biasCorrection2
		w[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// Steps returns the number of completed Step calls.
func (a *Adam) Steps() int {
	return a.t
}

// Moments returns the first and second moment of parameter k.
func (a *Adam) Moments(k int) (m, v *matrix.Matrix) {
	return a.m[k], a.v[k]
}

func checkParameter(op string, w, g *matrix.Matrix) {
	if !w.SameShape(g) {
		panic(&matrix.ShapeError{Op: op, A: [2]int{w.Rows(), w.Cols()}, B: [2]int{g.Rows(), g.Cols()}})
	}
}
