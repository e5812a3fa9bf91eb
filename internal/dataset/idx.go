package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	imagesMagic = 2051
	labelsMagic = 2049
)

// gzipMagic is the two byte header of a gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// Images is a decoded IDX image file. Pixels holds Count images of
// Rows*Cols bytes each, row-major.
type Images struct {
	Count, Rows, Cols int
	Pixels            []byte
}

// Size returns the number of pixels per image.
func (im *Images) Size() int {
	return im.Rows * im.Cols
}

// Image returns the pixels of image i.
func (im *Images) Image(i int) []byte {
	n := im.Size()
	return im.Pixels[i*n : (i+1)*n]
}

// ReadImages decodes an IDX image stream.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// Every integer is big-endian.
func ReadImages(r io.Reader) (*Images, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if header[0] != imagesMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header[0], imagesMagic)
	}

	im := &Images{Count: int(header[1]), Rows: int(header[2]), Cols: int(header[3])}
	im.Pixels = make([]byte, im.Count*im.Size())
	if _, err := io.ReadFull(r, im.Pixels); err != nil {
		return nil, fmt.Errorf("failed to read %d images: %w", im.Count, err)
	}
	return im, nil
}

// ReadLabels decodes an IDX label stream.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadLabels(r io.Reader) ([]byte, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}
	if header[0] != labelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header[0], labelsMagic)
	}

	labels := make([]byte, header[1])
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read %d labels: %w", len(labels), err)
	}
	return labels, nil
}

// openIDX opens name, or name+".gz" when name does not exist, and
// transparently decompresses gzip content.
func openIDX(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		f, err = os.Open(name + ".gz")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(gzipMagic))
	if !bytes.Equal(head, gzipMagic) {
		return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decompress %s: %w", f.Name(), err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func readImagesFile(name string) (*Images, error) {
	rc, err := openIDX(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadImages(rc)
}

func readLabelsFile(name string) ([]byte, error) {
	rc, err := openIDX(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadLabels(rc)
}
