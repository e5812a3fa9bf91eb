package net

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// GGUF Constants
const (
	GGUFMagic     = 0x46554747 // "GGUF" in little-endian
	GGUFVersion   = 3
	ggufAlignment = 32
)

// GGUF Value Types
type GGUFType uint32

const (
	GGUFTypeUint32  GGUFType = 4
	GGUFTypeFloat32 GGUFType = 6
	GGUFTypeString  GGUFType = 8
)

// GGML Tensor Types
type GGMLType uint32

const (
	GGMLTypeF32 GGMLType = 0
	GGMLTypeF16 GGMLType = 1
)

func (t GGMLType) size() (uint64, error) {
	switch t {
	case GGMLTypeF32:
		return 4, nil
	case GGMLTypeF16:
		return 2, nil
	}
	return 0, fmt.Errorf("unsupported tensor type: %d", t)
}

// GGUFWriter writes GGUF files and keeps track of the bytes written so
// tensor data can be aligned.
type GGUFWriter struct {
	w         io.Writer
	alignment uint64
	written   uint64
	err       error
}

func NewGGUFWriter(w io.Writer) *GGUFWriter {
	return &GGUFWriter{w: w, alignment: ggufAlignment}
}

func (gw *GGUFWriter) write(v any) {
	if gw.err != nil {
		return
	}
	gw.err = binary.Write(gw.w, binary.LittleEndian, v)
	if gw.err == nil {
		gw.written += uint64(binary.Size(v))
	}
}

func (gw *GGUFWriter) writeString(s string) {
	gw.write(uint64(len(s)))
	gw.write([]byte(s))
}

// Err returns the first write error.
func (gw *GGUFWriter) Err() error { return gw.err }

func (gw *GGUFWriter) WriteHeader(kvCount, tensorCount uint64) {
	gw.write(uint32(GGUFMagic))
	gw.write(uint32(GGUFVersion))
	gw.write(tensorCount)
	gw.write(kvCount)
}

func (gw *GGUFWriter) WriteKV(key string, value any) {
	gw.writeString(key)
	switch v := value.(type) {
	case uint32:
		gw.write(uint32(GGUFTypeUint32))
		gw.write(v)
	case float32:
		gw.write(uint32(GGUFTypeFloat32))
		gw.write(v)
	case string:
		gw.write(uint32(GGUFTypeString))
		gw.writeString(v)
	default:
		if gw.err == nil {
			gw.err = fmt.Errorf("unsupported GGUF value for %s: %T", key, value)
		}
	}
}

// WriteTensorInfo writes a tensor descriptor. shape is given outermost
// first; GGUF stores it innermost first.
func (gw *GGUFWriter) WriteTensorInfo(name string, shape []uint64, ggmlType GGMLType, offset uint64) {
	gw.writeString(name)
	gw.write(uint32(len(shape)))
	for i := len(shape) - 1; i >= 0; i-- {
		gw.write(shape[i])
	}
	gw.write(uint32(ggmlType))
	gw.write(offset)
}

// Pad writes zero bytes up to the next alignment boundary.
func (gw *GGUFWriter) Pad() {
	if rem := gw.written % gw.alignment; rem != 0 {
		gw.write(make([]byte, gw.alignment-rem))
	}
}

func (gw *GGUFWriter) WriteTensor(data []float64, ggmlType GGMLType) {
	switch ggmlType {
	case GGMLTypeF32:
		buf := make([]float32, len(data))
		for i, v := range data {
			buf[i] = float32(v)
		}
		gw.write(buf)
	case GGMLTypeF16:
		buf := make([]uint16, len(data))
		for i, v := range data {
			buf[i] = Float16(v)
		}
		gw.write(buf)
	}
}

func alignUp(n, alignment uint64) uint64 {
	return (n + alignment - 1) / alignment * alignment
}

// SaveGGUF exports the layer weights to a GGUF file.
func (n *Network) SaveGGUF(filename string, ggmlType GGMLType) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	bw := bufio.NewWriter(file)
	if err := n.WriteGGUF(bw, ggmlType); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write gguf: %w", err)
	}
	return file.Close()
}

// WriteGGUF writes the network as GGUF: architecture metadata followed by
// one "blk.<l>.weight" tensor of shape (in+1) x out per layer, bias last.
func (n *Network) WriteGGUF(w io.Writer, ggmlType GGMLType) error {
	elemSize, err := ggmlType.size()
	if err != nil {
		return err
	}

	gw := NewGGUFWriter(w)
	kvs := []struct {
		key   string
		value any
	}{
		{"general.architecture", "digitnet"},
		{"general.alignment", uint32(ggufAlignment)},
		{"digitnet.block_count", uint32(len(n.layers))},
		{"digitnet.input_dim", uint32(n.hp.InputDim)},
		{"digitnet.output_dim", uint32(n.hp.OutputDim)},
		{"digitnet.dropout_rate", float32(n.hp.DropoutRate)},
	}

	gw.WriteHeader(uint64(len(kvs)), uint64(len(n.layers)))
	for _, kv := range kvs {
		gw.WriteKV(kv.key, kv.value)
	}

	var offset uint64
	for l, d := range n.layers {
		rows, cols := d.Weights().Dims()
		gw.WriteTensorInfo(fmt.Sprintf("blk.%d.weight", l), []uint64{uint64(rows), uint64(cols)}, ggmlType, offset)
		offset = alignUp(offset+uint64(rows*cols)*elemSize, ggufAlignment)
	}

	for l, d := range n.layers {
		gw.Pad()
		gw.WriteTensor(d.Weights().Data(), ggmlType)
		if gw.Err() != nil {
			return fmt.Errorf("failed to write tensor %d: %w", l, gw.Err())
		}
	}
	if gw.Err() != nil {
		return fmt.Errorf("failed to write gguf: %w", gw.Err())
	}
	return nil
}

// Float16 converts f to IEEE half precision bits, truncating the mantissa.
func Float16(f float64) uint16 {
	bits := math.Float32bits(float32(f))
	s := uint16((bits >> 16) & 0x8000)
	e := int16((bits >> 23) & 0xFF)
	m := bits & 0x7FFFFF

	switch {
	case e == 0:
		return s
	case e == 0xFF:
		if m == 0 {
			return s | 0x7C00
		}
		return s | 0x7C00 | uint16(m>>13) | 1
	}

	e -= 127 - 15
	if e >= 31 {
		return s | 0x7C00
	} else if e <= 0 {
		if e < -10 {
			return s
		}
		m |= 0x800000
		m >>= uint32(1 - e)
		return s | uint16(m>>13)
	}
	return s | uint16(e<<10) | uint16(m>>13)
}
