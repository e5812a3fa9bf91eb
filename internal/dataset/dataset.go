// Package dataset loads the MNIST handwritten digit database into
// mini-batches ready for training and validation.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/FlavioCFOliveira/DigitNet/internal/config"
	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// ErrUnknownKind is returned for a dataset kind other than train or validation.
var ErrUnknownKind = errors.New("dataset: unknown kind")

// Kind selects which split of the database is loaded.
type Kind int

const (
	// Train is split into mini_batch_size batches, n_train_samples in total.
	Train Kind = iota
	// Validation is split into single-row batches, n_val_samples in total.
	Validation
)

// File names inside the data directory. A ".gz" suffix is also accepted.
const (
	TrainImagesFile      = "train-images.idx3-ubyte"
	TrainLabelsFile      = "train-labels.idx1-ubyte"
	ValidationImagesFile = "t10k-images.idx3-ubyte"
	ValidationLabelsFile = "t10k-labels.idx1-ubyte"
)

// ParseKind maps "train" and "validation" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "train":
		return Train, nil
	case "validation":
		return Validation, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) String() string {
	switch k {
	case Train:
		return "train"
	case Validation:
		return "validation"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) files() (images, labels string, err error) {
	switch k {
	case Train:
		return TrainImagesFile, TrainLabelsFile, nil
	case Validation:
		return ValidationImagesFile, ValidationLabelsFile, nil
	}
	return "", "", fmt.Errorf("%w: %v", ErrUnknownKind, k)
}

// Layout returns the number of batches and rows per batch for kind.
func Layout(hp config.Hyperparameters, kind Kind) (batches, size int, err error) {
	switch kind {
	case Train:
		return hp.NumBatches(), hp.MiniBatchSize, nil
	case Validation:
		return hp.NValSamples, 1, nil
	}
	return 0, 0, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// Batch is one mini-batch: X is batch x input_dim, Y is batch x output_dim one-hot.
type Batch struct {
	X, Y *matrix.Matrix
}

// Size returns the number of rows in the batch.
func (b Batch) Size() int {
	return b.X.Rows()
}

// OneHot returns a len(labels) x classes matrix with a 1 in column
// labels[i] of row i.
func OneHot(labels []byte, classes int) (*matrix.Matrix, error) {
	m := matrix.New(len(labels), classes)
	for i, l := range labels {
		if int(l) >= classes {
			return nil, fmt.Errorf("label %d at index %d out of range [0, %d)", l, i, classes)
		}
		m.Set(i, int(l), 1)
	}
	return m, nil
}

// Load reads the kind split from dir and cuts it into batches according
// to hp. The kind is checked before any file is opened.
func Load(dir string, hp config.Hyperparameters, kind Kind) ([]Batch, error) {
	imagesName, labelsName, err := kind.files()
	if err != nil {
		return nil, err
	}

	images, err := readImagesFile(filepath.Join(dir, imagesName))
	if err != nil {
		return nil, err
	}
	labels, err := readLabelsFile(filepath.Join(dir, labelsName))
	if err != nil {
		return nil, err
	}
	return Split(images, labels, hp, kind)
}

// Split cuts decoded images and labels into batches. Pixels are scaled
// to [0, 1]. Samples beyond what hp asks for are ignored.
func Split(images *Images, labels []byte, hp config.Hyperparameters, kind Kind) ([]Batch, error) {
	n, size, err := Layout(hp, kind)
	if err != nil {
		return nil, err
	}
	if images.Size() != hp.InputDim {
		return nil, fmt.Errorf("image size %dx%d does not match input_dim %d", images.Rows, images.Cols, hp.InputDim)
	}
	available := min(images.Count, len(labels))
	if need := n * size; need > available {
		return nil, fmt.Errorf("%s split needs %d samples, only %d available", kind, need, available)
	}

	batches := make([]Batch, n)
	for b := range batches {
		x := matrix.New(size, hp.InputDim)
		for r := 0; r < size; r++ {
			row := x.Row(r)
			for j, p := range images.Image(b*size + r) {
				row[j] = float64(p) / 255
			}
		}
		y, err := OneHot(labels[b*size:(b+1)*size], hp.OutputDim)
		if err != nil {
			return nil, err
		}
		batches[b] = Batch{X: x, Y: y}
	}
	return batches, nil
}
