// Package opt provides unit tests for optimizers.
package opt

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/DigitNet/internal/config"
	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
	"github.com/FlavioCFOliveira/DigitNet/internal/net"
)

// fakeModel is a fixed parameter list.
type fakeModel struct {
	params []net.Parameter
}

func (f *fakeModel) Parameters() []net.Parameter { return f.params }

func newFakeModel(weights, grads [][][]float64) *fakeModel {
	f := &fakeModel{}
	for i := range weights {
		f.params = append(f.params, net.Parameter{
			Weights:  matrix.FromRows(weights[i]),
			Gradient: matrix.FromRows(grads[i]),
		})
	}
	return f
}

// TestSGDStepInPlace tests in-place SGD update.
func TestSGDStepInPlace(t *testing.T) {
	sgd := SGD{LearningRate: 0.1}

	params := []float64{1.0, 2.0, 3.0}
	gradients := []float64{0.1, 0.2, 0.3}

	sgd.StepInPlace(params, gradients)

	expected := []float64{
		1.0 - 0.1*0.1, // 0.99
		2.0 - 0.1*0.2, // 1.98
		3.0 - 0.1*0.3, // 2.97
	}
	assert.InDeltaSlice(t, expected, params, 1e-10)
	// Gradients are read only.
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, gradients)
}

// TestSGDStep tests SGD over a model's parameters.
func TestSGDStep(t *testing.T) {
	model := newFakeModel(
		[][][]float64{{{1, 2}, {3, 4}}, {{-1}}},
		[][][]float64{{{0.5, -0.5}, {0, 1}}, {{2}}},
	)
	SGD{LearningRate: 0.1}.Step(model)

	assert.InDeltaSlice(t, []float64{0.95, 2.05, 3, 3.9}, model.params[0].Weights.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{-1.2}, model.params[1].Weights.Data(), 1e-12)
}

// TestSGDZeroLearningRate tests that lr=0 leaves parameters untouched.
func TestSGDZeroLearningRate(t *testing.T) {
	model := newFakeModel([][][]float64{{{1, 2}}}, [][][]float64{{{10, 10}}})
	SGD{LearningRate: 0}.Step(model)
	assert.Equal(t, []float64{1, 2}, model.params[0].Weights.Data())
}

// TestSGDShapeMismatch tests that mismatched gradients panic.
func TestSGDShapeMismatch(t *testing.T) {
	model := newFakeModel([][][]float64{{{1, 2}}}, [][][]float64{{{1}, {2}}})
	assertShapePanic(t, func() { SGD{LearningRate: 0.1}.Step(model) })
}

// TestNewAdamDefaults tests default hyperparameters and moment allocation.
func TestNewAdamDefaults(t *testing.T) {
	model := newFakeModel(
		[][][]float64{{{1, 2, 3}, {4, 5, 6}}, {{1}}},
		[][][]float64{{{0, 0, 0}, {0, 0, 0}}, {{0}}},
	)
	adam := NewAdam(model, 0.001)

	assert.Equal(t, 0.001, adam.LearningRate)
	assert.Equal(t, 0.9, adam.Beta1)
	assert.Equal(t, 0.999, adam.Beta2)
	assert.Equal(t, 1e-8, adam.Epsilon)
	assert.Equal(t, 0, adam.Steps())

	for k, p := range model.params {
		m, v := adam.Moments(k)
		assert.True(t, m.SameShape(p.Weights))
		assert.True(t, v.SameShape(p.Weights))
		for _, x := range m.Data() {
			assert.Zero(t, x)
		}
		for _, x := range v.Data() {
			assert.Zero(t, x)
		}
	}
}

// TestAdamFirstStep checks the first update against a hand computation.
// With zero moments the bias-corrected update is g/(|g|+eps), so every
// weight moves by almost exactly lr in the gradient's direction.
func TestAdamFirstStep(t *testing.T) {
	model := newFakeModel([][][]float64{{{1, -1, 0.5}}}, [][][]float64{{{0.2, -3, 1e-3}}})
	adam := NewAdam(model, 0.01)
	adam.Step(model)

	want := []float64{
		1 - 0.01*0.2/(0.2+1e-8),
		-1 + 0.01*3/(3+1e-8),
		0.5 - 0.01*1e-3/(1e-3+1e-8),
	}
	assert.InDeltaSlice(t, want, model.params[0].Weights.Data(), 1e-12)
	assert.Equal(t, 1, adam.Steps())

	m, v := adam.Moments(0)
	assert.InDeltaSlice(t, []float64{0.02, -0.3, 1e-4}, m.Data(), 1e-12)
	assert.InDeltaSlice(t, []float64{0.2 * 0.2 * 0.001, 9 * 0.001, 1e-6 * 0.001}, v.Data(), 1e-15)
}

// TestAdamSecondStep checks that moments persist and t advances once per step.
func TestAdamSecondStep(t *testing.T) {
	model := newFakeModel([][][]float64{{{0}}}, [][][]float64{{{1}}})
	adam := NewAdam(model, 0.1)
	adam.Step(model)

	model.params[0].Gradient.Set(0, 0, -1)
	adam.Step(model)
	assert.Equal(t, 2, adam.Steps())

	m1, v1 := 0.1, 0.001
	m2 := 0.9*m1 + 0.1*(-1)
	v2 := 0.999*v1 + 0.001*1
	mHat := m2 / (1 - 0.9*0.9)
	vHat := v2 / (1 - 0.999*0.999)
	want := -0.1*1/(1+1e-8) - 0.1*mHat/(math.Sqrt(vHat)+1e-8)

	assert.InDelta(t, want, model.params[0].Weights.At(0, 0), 1e-12)
	m, v := adam.Moments(0)
	assert.InDelta(t, m2, m.At(0, 0), 1e-15)
	assert.InDelta(t, v2, v.At(0, 0), 1e-15)
}

// TestAdamZeroGradient tests that a zero gradient from zero moments is a no-op
// apart from advancing the step counter.
func TestAdamZeroGradient(t *testing.T) {
	model := newFakeModel([][][]float64{{{1, 2}, {3, 4}}}, [][][]float64{{{0, 0}, {0, 0}}})
	adam := NewAdam(model, 0.5)
	for i := 0; i < 3; i++ {
		adam.Step(model)
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, model.params[0].Weights.Data())
	assert.Equal(t, 3, adam.Steps())
}

// TestAdamParameterCountMismatch tests that a model with a different
// parameter list than the one Adam was built for panics.
func TestAdamParameterCountMismatch(t *testing.T) {
	model := newFakeModel([][][]float64{{{1}}}, [][][]float64{{{1}}})
	adam := NewAdam(model, 0.1)

	other := newFakeModel([][][]float64{{{1}}, {{2}}}, [][][]float64{{{1}}, {{2}}})
	assertShapePanic(t, func() { adam.Step(other) })

	reshaped := newFakeModel([][][]float64{{{1, 2}}}, [][][]float64{{{1, 2}}})
	assertShapePanic(t, func() { adam.Step(reshaped) })
	assert.Equal(t, 0, adam.Steps())
}

// TestAdamReducesLoss trains a small network and checks the loss drops.
func TestAdamReducesLoss(t *testing.T) {
	hp := config.Default().Hyperparameters
	hp.InputDim = 4
	hp.OutputDim = 3
	hp.HiddenLayerSizes = []int{8}
	hp.DropoutRate = 0

	network := net.New(hp, rand.New(rand.NewPCG(3, 5)))
	x := matrix.FromRows([][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 1},
	})
	y := matrix.FromRows([][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})

	adam := NewAdam(network, 0.01)
	first := crossEntropy(network.Forward(x, true), y)
	for i := 0; i < 500; i++ {
		network.Forward(x, true)
		network.Backpropagation(x, y)
		adam.Step(network)
	}
	last := crossEntropy(network.Forward(x, false), y)
	assert.Less(t, last, first/4)
}

func crossEntropy(p, y *matrix.Matrix) float64 {
	var sum float64
	for i, v := range y.Data() {
		if v != 0 {
			sum -= v * math.Log(p.Data()[i])
		}
	}
	return sum / float64(y.Rows())
}

func assertShapePanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, matrix.ErrShapeMismatch))
	}()
	f()
}
