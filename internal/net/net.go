// Package net provides the feedforward network and its weight files.
package net

import (
	"fmt"
	"math/rand/v2"

	"github.com/FlavioCFOliveira/DigitNet/internal/activations"
	"github.com/FlavioCFOliveira/DigitNet/internal/config"
	"github.com/FlavioCFOliveira/DigitNet/internal/layer"
	"github.com/FlavioCFOliveira/DigitNet/internal/loss"
	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// Parameter pairs a weight matrix with the gradient computed for it by
// the last Backpropagation.
type Parameter struct {
	Weights  *matrix.Matrix
	Gradient *matrix.Matrix
}

// Network is a stack of dense layers: ReLU on every hidden layer and
// softmax on the output layer.
type Network struct {
	hp     config.Hyperparameters
	rng    *rand.Rand
	layers []*layer.Dense

	// Gradient buffers, parallel to layers.
	dW []*matrix.Matrix
	dZ []*matrix.Matrix

	output *matrix.Matrix
}

// New creates a network with layer sizes [input, hidden..., output].
// rng initializes the weights and later drives the dropout masks.
func New(hp config.Hyperparameters, rng *rand.Rand) *Network {
	return build(hp, rng, func(in, out int) *layer.Dense {
		return layer.NewDense(in, out, rng)
	})
}

func build(hp config.Hyperparameters, rng *rand.Rand, newLayer func(in, out int) *layer.Dense) *Network {
	sizes := hp.LayerSizes()
	L := len(sizes) - 1

	n := &Network{
		hp:     hp,
		rng:    rng,
		layers: make([]*layer.Dense, L),
		dW:     make([]*matrix.Matrix, L),
		dZ:     make([]*matrix.Matrix, L),
	}
	for l := 0; l < L; l++ {
		n.layers[l] = newLayer(sizes[l], sizes[l+1])
		n.dW[l] = matrix.New(sizes[l]+1, sizes[l+1])
	}
	return n
}

// activation returns the activation of layer l.
func (n *Network) activation(l int) activations.Kind {
	if l == len(n.layers)-1 {
		return activations.Softmax
	}
	return activations.ReLU
}

// Forward runs input through every layer and returns the output
// probabilities. In learning mode the activations handed from one layer
// to the next are dropout-masked with the configured rate.
func (n *Network) Forward(input *matrix.Matrix, learning bool) *matrix.Matrix {
	curr := input
	for l, d := range n.layers {
		if l > 0 {
			curr = n.layers[l-1].Output()
			if learning {
				curr = curr.DropoutMask(n.rng, n.hp.DropoutRate)
			}
		}
		d.Forward(curr, n.activation(l))
	}

	n.output = n.layers[len(n.layers)-1].Output()
	return n.output
}

// Backpropagation computes the weight gradients of the cross-entropy loss
// for the batch seen by the last Forward. yTrue must be one-hot with the
// same shape as the output. Gradients are summed over the batch, not
// averaged.
func (n *Network) Backpropagation(input, yTrue *matrix.Matrix) {
	if n.output == nil {
		panic("net: Backpropagation called before Forward")
	}
	L := len(n.layers)

	// Softmax and cross-entropy combine into Z - y.
	n.dZ[L-1] = loss.CrossEntropy{}.Backward(n.output, yTrue)
	n.dW[L-1] = matrix.GradientBias(n.layerInput(input, L-1), n.dZ[L-1])

	for l := L - 2; l >= 0; l-- {
		dZ := matrix.BackpropBias(n.dZ[l+1], n.layers[l+1].Weights())
		y := n.layers[l].Preactivation().Data()
		for i, v := range dZ.Data() {
			dZ.Data()[i] = v * activations.ReLUDerivative(y[i])
		}
		n.dZ[l] = dZ
		n.dW[l] = matrix.GradientBias(n.layerInput(input, l), dZ)
	}
}

// layerInput returns the unmasked activation feeding layer l.
func (n *Network) layerInput(input *matrix.Matrix, l int) *matrix.Matrix {
	if l == 0 {
		return input
	}
	return n.layers[l-1].Output()
}

// Parameters returns one (weights, gradient) pair per layer, in layer order.
func (n *Network) Parameters() []Parameter {
	params := make([]Parameter, len(n.layers))
	for l, d := range n.layers {
		params[l] = Parameter{Weights: d.Weights(), Gradient: n.dW[l]}
	}
	return params
}

// CopyLayers copies every weight matrix of other into n by value.
func (n *Network) CopyLayers(other *Network) error {
	if len(n.layers) != len(other.layers) {
		return fmt.Errorf("failed to copy layers: %w: %d layers, source has %d",
			matrix.ErrShapeMismatch, len(n.layers), len(other.layers))
	}
	for l, d := range n.layers {
		if err := d.SetWeights(other.layers[l].Weights()); err != nil {
			return fmt.Errorf("layer %d: %w", l, err)
		}
	}
	return nil
}

// Snapshot returns a separate network holding a copy of n's weights.
// No random draws are taken.
func (n *Network) Snapshot() *Network {
	s := build(n.hp, n.rng, func(in, out int) *layer.Dense {
		return layer.FromWeights(matrix.New(in+1, out))
	})
	if err := s.CopyLayers(n); err != nil {
		panic(err)
	}
	return s
}

// Predict returns the class index of a single-row input in inference mode.
func (n *Network) Predict(x *matrix.Matrix) int {
	return n.Forward(x, false).RowArgmaxIndex()
}

// Output returns the result of the last Forward.
func (n *Network) Output() *matrix.Matrix {
	return n.output
}

// Layer returns layer l.
func (n *Network) Layer(l int) *layer.Dense {
	return n.layers[l]
}

// Layers returns the number of layers.
func (n *Network) Layers() int {
	return len(n.layers)
}

// Gradients returns dW and dZ of layer l from the last Backpropagation.
func (n *Network) Gradients(l int) (dW, dZ *matrix.Matrix) {
	return n.dW[l], n.dZ[l]
}

// Hyperparameters returns the configuration the network was built with.
func (n *Network) Hyperparameters() config.Hyperparameters {
	return n.hp
}
