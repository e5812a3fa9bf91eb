package trainer

import (
	"bytes"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/DigitNet/internal/config"
	"github.com/FlavioCFOliveira/DigitNet/internal/dataset"
	"github.com/FlavioCFOliveira/DigitNet/internal/loss"
	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
	"github.com/FlavioCFOliveira/DigitNet/internal/net"
	"github.com/FlavioCFOliveira/DigitNet/internal/opt"
)

// samples are four linearly separable points of three classes.
var samples = []struct {
	x     []float64
	label int
}{
	{[]float64{1, 0, 0.1}, 0},
	{[]float64{0, 1, 0.2}, 1},
	{[]float64{0.1, 0, 1}, 2},
	{[]float64{0.9, 0.1, 0}, 0},
}

func testHyperparameters() config.Hyperparameters {
	hp := config.Default().Hyperparameters
	hp.InputDim = 3
	hp.OutputDim = 3
	hp.HiddenLayerSizes = []int{5}
	hp.DropoutRate = 0
	hp.MaxEpochs = 10
	hp.NTrainSamples = 4
	hp.MiniBatchSize = 2
	hp.NValSamples = 4
	hp.EarlyStopping = true
	hp.Patience = 2
	return hp
}

func makeBatches(size int) []dataset.Batch {
	var batches []dataset.Batch
	for start := 0; start+size <= len(samples); start += size {
		var xs, ys [][]float64
		for _, s := range samples[start : start+size] {
			y := make([]float64, 3)
			y[s.label] = 1
			xs = append(xs, s.x)
			ys = append(ys, y)
		}
		batches = append(batches, dataset.Batch{X: matrix.FromRows(xs), Y: matrix.FromRows(ys)})
	}
	return batches
}

func newNetwork(hp config.Hyperparameters) *net.Network {
	return net.New(hp, rand.New(rand.NewPCG(11, 13)))
}

func TestEarlyStoppingUpdate(t *testing.T) {
	e := NewEarlyStopping(2)
	assert.True(t, math.IsInf(e.BestLoss(), 1))

	losses := []float64{1, 0.5, 0.5, 0.6, 0.7}
	for i, l := range losses {
		stop := e.Update(l)
		if i < len(losses)-1 {
			assert.False(t, stop, "epoch %d", i)
		} else {
			assert.True(t, stop, "epoch %d", i)
		}
	}
	assert.Equal(t, 0.5, e.BestLoss())
	assert.Equal(t, 3, e.BadEpochs())
	assert.True(t, e.Stopped)
}

func TestEarlyStoppingImprovementResets(t *testing.T) {
	e := NewEarlyStopping(1)
	assert.False(t, e.Update(3))
	assert.False(t, e.Update(4))
	assert.False(t, e.Update(2))
	assert.Equal(t, 0, e.BadEpochs())
	assert.False(t, e.Update(2))
	assert.True(t, e.Update(2))
}

func TestEarlyStoppingZeroPatience(t *testing.T) {
	e := NewEarlyStopping(0)
	assert.False(t, e.Update(1))
	assert.True(t, e.Update(1))
}

// With a zero learning rate the loss never changes, so early stopping
// fires at epoch index patience+1.
func TestRunStopsDeterministically(t *testing.T) {
	hp := testHyperparameters()
	network := newNetwork(hp)
	before := network.Layer(0).Weights().Clone()

	var out bytes.Buffer
	tr := New(network, opt.SGD{LearningRate: 0}, hp, WithLogger(log.New(&out, "", 0)), WithRunID("test-run"))
	res, err := tr.Run(makeBatches(2), makeBatches(1), true)
	require.NoError(t, err)

	assert.True(t, res.Stopped)
	assert.Equal(t, hp.Patience+1, res.Epochs)
	assert.Equal(t, hp.Patience+2, res.History.Len())
	assert.Equal(t, res.Epochs, res.History.Epochs)
	assert.Equal(t, "test-run", res.RunID)

	require.NotNil(t, res.Best)
	assert.NotSame(t, network, res.Best)
	for l := 0; l < network.Layers(); l++ {
		assert.True(t, res.Best.Layer(l).Weights().Equal(network.Layer(l).Weights()))
	}
	assert.True(t, network.Layer(0).Weights().Equal(before))

	for _, l := range res.History.Loss {
		assert.Equal(t, res.History.Loss[0], l)
	}
	assert.Equal(t, res.History.Loss[0], res.BestLoss)

	logs := out.String()
	assert.Contains(t, logs, "run test-run")
	assert.Contains(t, logs, "[Epoch 1/10] Loss = ")
	assert.Contains(t, logs, "[Epoch 4/10]")
	assert.NotContains(t, logs, "[Epoch 5/10]")
	assert.Contains(t, logs, "Breaking")
}

func TestRunMetrics(t *testing.T) {
	hp := testHyperparameters()
	hp.MaxEpochs = 1
	network := newNetwork(hp)
	train, validation := makeBatches(2), makeBatches(1)

	var (
		ce       loss.CrossEntropy
		wantLoss float64
		correct  int
	)
	for _, b := range train {
		wantLoss += ce.Forward(network.Forward(b.X, false), b.Y)
	}
	for _, b := range validation {
		correct += loss.Correct(network.Forward(b.X, false), b.Y)
	}

	rec := &recorder{}
	res, err := New(network, opt.SGD{LearningRate: 0}, hp, WithCallbacks(rec)).Run(train, validation, true)
	require.NoError(t, err)

	require.Len(t, rec.metrics, 1)
	m := rec.metrics[0]
	assert.Equal(t, 0, m.Epoch)
	assert.InDelta(t, wantLoss/2, m.Loss, 1e-12)
	assert.InDelta(t, 100*float64(correct)/4, m.ValidationAccuracy, 1e-12)
	// Train and validation see the same points with a frozen network.
	assert.InDelta(t, m.ValidationAccuracy, m.TrainAccuracy, 1e-12)

	assert.Same(t, res, rec.end)
	assert.Equal(t, res.RunID, rec.runID)
	assert.NotEmpty(t, res.RunID)
}

func TestRunFullWithoutEarlyStopping(t *testing.T) {
	hp := testHyperparameters()
	hp.EarlyStopping = false
	hp.MaxEpochs = 4

	res, err := New(newNetwork(hp), opt.SGD{LearningRate: 0}, hp).Run(makeBatches(2), makeBatches(1), true)
	require.NoError(t, err)
	assert.False(t, res.Stopped)
	assert.Nil(t, res.Best)
	assert.Equal(t, 4, res.Epochs)
	assert.Equal(t, 4, res.History.Len())
}

func TestRunWithoutStore(t *testing.T) {
	hp := testHyperparameters()
	path := filepath.Join(t.TempDir(), "metrics.csv")

	res, err := New(newNetwork(hp), opt.SGD{LearningRate: 0}, hp, WithMetricsPath(path)).
		Run(makeBatches(2), makeBatches(1), false)
	require.NoError(t, err)
	assert.Zero(t, res.History.Len())
	assert.NoFileExists(t, path)
}

func TestRunWritesMetrics(t *testing.T) {
	hp := testHyperparameters()
	path := filepath.Join(t.TempDir(), "metrics.csv")

	res, err := New(newNetwork(hp), opt.SGD{LearningRate: 0}, hp, WithMetricsPath(path)).
		Run(makeBatches(2), makeBatches(1), true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "epoch,train_accuracy,validation_accuracy,loss", lines[0])
	assert.Len(t, lines, res.Epochs+1)
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
}

func TestRunLearns(t *testing.T) {
	hp := testHyperparameters()
	hp.EarlyStopping = false
	hp.MaxEpochs = 300
	network := newNetwork(hp)

	res, err := New(network, opt.NewAdam(network, 0.01), hp).Run(makeBatches(2), makeBatches(1), true)
	require.NoError(t, err)
	assert.Less(t, res.History.Loss[hp.MaxEpochs-1], res.History.Loss[0]/2)
	assert.Equal(t, 100.0, res.History.ValidationAccuracy[hp.MaxEpochs-1])
}

func TestRunConfigErrors(t *testing.T) {
	hp := testHyperparameters()
	network := newNetwork(hp)
	sgd := opt.SGD{LearningRate: 0.1}

	tests := []struct {
		name       string
		hp         func(*config.Hyperparameters)
		train, val []dataset.Batch
	}{
		{"short train", nil, makeBatches(2)[:1], makeBatches(1)},
		{"short validation", nil, makeBatches(2), makeBatches(1)[:3]},
		{"no batches", func(h *config.Hyperparameters) { h.MiniBatchSize = 8 }, makeBatches(2), makeBatches(1)},
		{"no validation", func(h *config.Hyperparameters) { h.NValSamples = 0 }, makeBatches(2), makeBatches(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hp
			if tt.hp != nil {
				tt.hp(&h)
			}
			_, err := New(network, sgd, h).Run(tt.train, tt.val, false)
			assert.Error(t, err)
		})
	}
}

func TestHistoryWrite(t *testing.T) {
	h := History{
		TrainAccuracy:      []float64{50, 75, 80},
		ValidationAccuracy: []float64{40, 60.5, 70},
		Loss:               []float64{1.5, 0.25, 0.125},
		Epochs:             2,
	}
	var buf bytes.Buffer
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, "epoch,train_accuracy,validation_accuracy,loss\n1,50,40,1.5\n2,75,60.5,0.25\n", buf.String())

	h.Epochs = 10
	buf.Reset()
	require.NoError(t, h.Write(&buf))
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))
}

func TestHistoryWriteCSVBadPath(t *testing.T) {
	h := History{}
	err := h.WriteCSV(filepath.Join(t.TempDir(), "missing", "metrics.csv"))
	assert.Error(t, err)
}

type recorder struct {
	BaseCallback
	runID   string
	metrics []Metrics
	end     *Result
}

func (r *recorder) OnTrainBegin(runID string) { r.runID = runID }
func (r *recorder) OnEpochEnd(m Metrics)      { r.metrics = append(r.metrics, m) }
func (r *recorder) OnTrainEnd(res *Result)    { r.end = res }
