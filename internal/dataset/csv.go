package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/FlavioCFOliveira/DigitNet/internal/config"
)

// CSV file names, Kaggle-style: a header, then label,pixel0,...,pixelN.
const (
	TrainCSVFile      = "mnist_train.csv"
	ValidationCSVFile = "mnist_test.csv"
)

// Format is the on-disk layout of the database.
type Format int

const (
	IDX Format = iota
	CSV
)

// ParseFormat maps "idx" and "csv" to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "idx", "":
		return IDX, nil
	case "csv":
		return CSV, nil
	}
	return 0, fmt.Errorf("unknown data format %q", s)
}

// ReadCSV decodes a CSV stream whose first column is the label and the
// remaining columns are pixel values 0-255. The first line is a header
// when hasHeader is set. Images are returned as a single row of pixels.
func ReadCSV(r io.Reader, hasHeader bool) (*Images, []byte, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	if hasHeader {
		if _, err := reader.Read(); err != nil {
			return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
		}
	}

	im := &Images{Rows: 1}
	var labels []byte
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("row %d has no pixel columns", row)
		}
		if im.Cols == 0 {
			im.Cols = len(record) - 1
		}

		label, err := parseByte(record[0])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse label at row %d: %w", row, err)
		}
		labels = append(labels, label)

		for j, s := range record[1:] {
			p, err := parseByte(s)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse value at row %d, col %d: %w", row, j+1, err)
			}
			im.Pixels = append(im.Pixels, p)
		}
		im.Count++
	}
	return im, labels, nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	return byte(v), err
}

// LoadCSV is Load for the CSV format.
func LoadCSV(dir string, hp config.Hyperparameters, kind Kind) ([]Batch, error) {
	var name string
	switch kind {
	case Train:
		name = TrainCSVFile
	case Validation:
		name = ValidationCSVFile
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}

	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	images, labels, err := ReadCSV(file, true)
	if err != nil {
		return nil, err
	}
	return Split(images, labels, hp, kind)
}

// LoadFormat loads kind from dir in the given format.
func LoadFormat(dir string, format Format, hp config.Hyperparameters, kind Kind) ([]Batch, error) {
	if format == CSV {
		return LoadCSV(dir, hp, kind)
	}
	return Load(dir, hp, kind)
}
