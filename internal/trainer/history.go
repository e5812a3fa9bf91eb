package trainer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// History holds per-epoch metrics of a run. Epochs is the number of
// epochs reported when the run ended; with early stopping the arrays
// hold one more entry than that.
type History struct {
	TrainAccuracy      []float64
	ValidationAccuracy []float64
	Loss               []float64
	Epochs             int
}

func (h *History) record(m Metrics) {
	h.TrainAccuracy = append(h.TrainAccuracy, m.TrainAccuracy)
	h.ValidationAccuracy = append(h.ValidationAccuracy, m.ValidationAccuracy)
	h.Loss = append(h.Loss, m.Loss)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int {
	return len(h.Loss)
}

// WriteCSV writes the history to filename, replacing any existing file.
func (h *History) WriteCSV(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := h.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Write emits a header followed by min(Epochs, Len()) records of
// epoch, train_accuracy, validation_accuracy, loss. Epochs count from 1.
func (h *History) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"epoch", "train_accuracy", "validation_accuracy", "loss"}); err != nil {
		return fmt.Errorf("failed to write metrics header: %w", err)
	}

	for i := 0; i < min(h.Epochs, h.Len()); i++ {
		record := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(h.TrainAccuracy[i], 'g', -1, 64),
			strconv.FormatFloat(h.ValidationAccuracy[i], 'g', -1, 64),
			strconv.FormatFloat(h.Loss[i], 'g', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write metrics record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
