package image

import (
	"io"

	"golang.org/x/xerrors"
)

// Memory is an image held in a byte slice.
type Memory struct {
	data []byte
}

// NewMemory returns a zero filled image of size bytes.
func NewMemory(size int64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// FromBytes wraps b without copying it.
func FromBytes(b []byte) *Memory {
	return &Memory{data: b}
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	return readAt(m.data, p, off)
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	return writeAt(m.data, p, off)
}

// Bytes is the backing slice.
func (m *Memory) Bytes() []byte {
	return m.data
}

func readAt(data, p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(data)) {
		return 0, xerrors.Errorf("read at %d of %d byte image: %w", off, len(data), io.ErrUnexpectedEOF)
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func writeAt(data, p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(data)) {
		return 0, xerrors.Errorf("write of %d bytes at %d past end of %d byte image: %w", len(p), off, len(data), io.ErrShortWrite)
	}
	return copy(data[off:], p), nil
}
