package net

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
)

// layerDelimiter terminates every layer block in a weight file.
const layerDelimiter = "==="

// SaveWeights writes the weights to a text file.
func (n *Network) SaveWeights(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := n.WriteWeights(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteWeights writes each layer's weight rows as space separated values,
// one row per line, followed by a "===" line.
func (n *Network) WriteWeights(w io.Writer) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for _, d := range n.layers {
		W := d.Weights()
		for i := 0; i < W.Rows(); i++ {
			for j, v := range W.Row(i) {
				if j > 0 {
					bw.WriteByte(' ')
				}
				buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
				bw.Write(buf)
			}
			bw.WriteByte('\n')
		}
		bw.WriteString(layerDelimiter + "\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	return nil
}

// LoadWeights reads a file written by SaveWeights.
func (n *Network) LoadWeights(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return n.ReadWeights(file)
}

// ReadWeights parses weight blocks and installs them layer by layer.
// The file must contain exactly one block per layer with matching shapes;
// on any error the network is left unchanged.
func (n *Network) ReadWeights(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	var blocks []*matrix.Matrix
	var rows [][]float64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == layerDelimiter {
			if len(rows) == 0 {
				return fmt.Errorf("line %d: empty weight block", lineNo)
			}
			blocks = append(blocks, matrix.FromRows(rows))
			rows = nil
			continue
		}

		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			row[j] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return fmt.Errorf("line %d: %w: row has %d values, block has %d",
				lineNo, matrix.ErrShapeMismatch, len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read weights: %w", err)
	}
	if len(rows) > 0 {
		return fmt.Errorf("unterminated weight block at end of input")
	}
	if len(blocks) != len(n.layers) {
		return fmt.Errorf("%w: weight file has %d layers, network has %d",
			matrix.ErrShapeMismatch, len(blocks), len(n.layers))
	}

	for l, w := range blocks {
		if !w.SameShape(n.layers[l].Weights()) {
			return fmt.Errorf("layer %d: %w: got %dx%d, want %dx%d", l, matrix.ErrShapeMismatch,
				w.Rows(), w.Cols(), n.layers[l].Weights().Rows(), n.layers[l].Weights().Cols())
		}
	}
	for l, w := range blocks {
		if err := n.layers[l].SetWeights(w); err != nil {
			return fmt.Errorf("layer %d: %w", l, err)
		}
	}
	return nil
}
