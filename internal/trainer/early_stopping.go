package trainer

import "math"

// EarlyStopping tracks the training loss and reports when it has failed
// to improve for more than Patience consecutive epochs.
type EarlyStopping struct {
	Patience int

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int) *EarlyStopping {
	return &EarlyStopping{
		Patience: patience,
		bestLoss: math.Inf(1),
	}
}

// Update records the loss of one epoch and returns true once training
// should stop. A loss equal to the best so far is not an improvement.
func (e *EarlyStopping) Update(loss float64) bool {
	if loss < e.bestLoss {
		e.bestLoss = loss
		e.numBadEpochs = 0
	} else {
		e.numBadEpochs++
	}

	if e.numBadEpochs > e.Patience {
		e.Stopped = true
	}
	return e.Stopped
}

// BestLoss returns the lowest loss seen, +Inf before the first Update.
func (e *EarlyStopping) BestLoss() float64 { return e.bestLoss }

// BadEpochs returns the number of epochs since the last improvement.
func (e *EarlyStopping) BadEpochs() int { return e.numBadEpochs }
