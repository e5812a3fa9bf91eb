// Package trainer runs the epoch loop of a classifier: mini-batch
// updates, validation accuracy, early stopping and metrics history.
package trainer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/FlavioCFOliveira/DigitNet/internal/config"
	"github.com/FlavioCFOliveira/DigitNet/internal/dataset"
	"github.com/FlavioCFOliveira/DigitNet/internal/loss"
	"github.com/FlavioCFOliveira/DigitNet/internal/net"
	"github.com/FlavioCFOliveira/DigitNet/internal/opt"
)

// Trainer drives a network and an optimizer it does not own.
type Trainer struct {
	network   *net.Network
	optimizer opt.Optimizer
	hp        config.Hyperparameters

	logger      *log.Logger
	metricsPath string
	callbacks   []Callback
	runID       string
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sends per-epoch progress to l. Without it nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithMetricsPath writes the history as CSV to path at the end of a
// stored run.
func WithMetricsPath(path string) Option {
	return func(t *Trainer) { t.metricsPath = path }
}

// WithCallbacks registers callbacks, invoked in order after the logger.
func WithCallbacks(cbs ...Callback) Option {
	return func(t *Trainer) { t.callbacks = append(t.callbacks, cbs...) }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(t *Trainer) { t.runID = id }
}

// New creates a trainer for network using optimizer and hp.
func New(network *net.Network, optimizer opt.Optimizer, hp config.Hyperparameters, opts ...Option) *Trainer {
	t := &Trainer{
		network:   network,
		optimizer: optimizer,
		hp:        hp,
		logger:    log.New(io.Discard, "", 0),
		runID:     uuid.NewString(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RunID identifies the runs of this trainer in logs.
func (t *Trainer) RunID() string {
	return t.runID
}

// Result is the outcome of Run.
type Result struct {
	RunID   string
	History History
	// Epochs is max_epochs for a full run, or the 0-based index of the
	// epoch that triggered early stopping.
	Epochs  int
	Stopped bool
	// Best is a copy of the network taken when early stopping fired,
	// nil otherwise. BestLoss is the lowest epoch loss seen.
	Best     *net.Network
	BestLoss float64
}

// Run trains for up to max_epochs. Each epoch updates the network on
// NumBatches training batches, averages their loss, and measures
// accuracy on the first n_val_samples validation batches in inference
// mode. With store set, per-epoch metrics are kept in Result.History.
func (t *Trainer) Run(train, validation []dataset.Batch, store bool) (*Result, error) {
	nBatches := t.hp.NumBatches()
	if nBatches == 0 {
		return nil, errors.New("trainer: configuration yields no training batches")
	}
	if len(train) < nBatches {
		return nil, fmt.Errorf("trainer: %d training batches required, got %d", nBatches, len(train))
	}
	if t.hp.NValSamples <= 0 {
		return nil, errors.New("trainer: n_val_samples must be > 0")
	}
	if len(validation) < t.hp.NValSamples {
		return nil, fmt.Errorf("trainer: %d validation batches required, got %d", t.hp.NValSamples, len(validation))
	}

	cbs := append([]Callback{Logger{Out: t.logger, MaxEpochs: t.hp.MaxEpochs}}, t.callbacks...)
	for _, cb := range cbs {
		cb.OnTrainBegin(t.runID)
	}

	res := &Result{RunID: t.runID, Epochs: t.hp.MaxEpochs, BestLoss: math.Inf(1)}
	stopper := NewEarlyStopping(t.hp.Patience)

	for epoch := 0; epoch < t.hp.MaxEpochs; epoch++ {
		m := t.epoch(train[:nBatches], validation[:t.hp.NValSamples])
		m.Epoch = epoch

		for _, cb := range cbs {
			cb.OnEpochEnd(m)
		}
		if store {
			res.History.record(m)
		}
		res.BestLoss = math.Min(res.BestLoss, m.Loss)

		if t.hp.EarlyStopping && stopper.Update(m.Loss) {
			res.Best = t.network.Snapshot()
			res.Epochs = epoch
			res.Stopped = true
			break
		}
	}
	res.History.Epochs = res.Epochs

	for _, cb := range cbs {
		cb.OnTrainEnd(res)
	}

	if store && t.metricsPath != "" {
		if err := res.History.WriteCSV(t.metricsPath); err != nil {
			return res, err
		}
	}
	return res, nil
}

// epoch runs one pass over train and validation.
func (t *Trainer) epoch(train, validation []dataset.Batch) Metrics {
	var (
		ce           loss.CrossEntropy
		epochLoss    float64
		trainCorrect int
		valCorrect   int
	)

	for _, b := range train {
		t.network.Forward(b.X, true)
		t.network.Backpropagation(b.X, b.Y)
		t.optimizer.Step(t.network)

		yPred := t.network.Output()
		epochLoss += ce.Forward(yPred, b.Y)
		trainCorrect += loss.Correct(yPred, b.Y)
	}

	for _, b := range validation {
		yPred := t.network.Forward(b.X, false)
		valCorrect += loss.Correct(yPred, b.Y)
	}

	return Metrics{
		Loss:               epochLoss / float64(len(train)),
		TrainAccuracy:      100 * float64(trainCorrect) / float64(t.hp.NTrainSamples),
		ValidationAccuracy: 100 * float64(valCorrect) / float64(len(validation)),
	}
}
