package trainer

import "log"

// Metrics are the figures of one completed epoch.
type Metrics struct {
	Epoch              int // 0-based
	Loss               float64
	TrainAccuracy      float64 // percent
	ValidationAccuracy float64 // percent
}

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(runID string)
	OnEpochEnd(m Metrics)
	OnTrainEnd(r *Result)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(runID string) {}
func (BaseCallback) OnEpochEnd(m Metrics)      {}
func (BaseCallback) OnTrainEnd(r *Result)      {}

// Logger logs training progress, one line per epoch.
type Logger struct {
	BaseCallback
	Out       *log.Logger
	MaxEpochs int
}

func (c Logger) OnTrainBegin(runID string) {
	c.Out.Printf("run %s: training for up to %d epochs", runID, c.MaxEpochs)
}

func (c Logger) OnEpochEnd(m Metrics) {
	c.Out.Printf("[Epoch %d/%d] Loss = %g | train_acc = %g %% | val_acc = %g %%",
		m.Epoch+1, c.MaxEpochs, m.Loss, m.TrainAccuracy, m.ValidationAccuracy)
}

func (c Logger) OnTrainEnd(r *Result) {
	if r.Stopped {
		c.Out.Printf("Breaking: loss did not improve on %.6f, stopped after %d epochs", r.BestLoss, r.Epochs)
	}
}
