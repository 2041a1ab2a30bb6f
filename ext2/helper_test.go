package ext2

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/masahiro331/go-ext2-filesystem/image"
)

const (
	testBlocks = 128
	testInodes = 32

	// fresh 128 block, 32 inode image
	testRootBlock      = 9
	testFirstFreeBlock = 11
	testFirstFreeInode = 12
	testFreeBlocks     = 117
	testFreeInodes     = 21
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestImage(t *testing.T) *image.Memory {
	t.Helper()
	mem := image.NewMemory(testBlocks * BlockSize)
	require.NoError(t, Format(mem, FormatOptions{Blocks: testBlocks, Inodes: testInodes, Now: testNow}))
	return mem
}

func openTestFS(t *testing.T, mem *image.Memory) *FileSystem {
	t.Helper()
	fsys, err := NewFS(mem, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return fsys
}

func newTestFS(t *testing.T) (*FileSystem, *image.Memory) {
	t.Helper()
	mem := newTestImage(t)
	return openTestFS(t, mem), mem
}

func snapshot(mem *image.Memory) []byte {
	return append([]byte(nil), mem.Bytes()...)
}

func requireConsistent(t *testing.T, fsys *FileSystem) {
	t.Helper()
	var out bytes.Buffer
	report, err := fsys.Check(&out)
	require.NoError(t, err)
	require.True(t, report.Consistent(), out.String())
	require.Equal(t, "No file system inconsistencies detected!\n", out.String())
}

func copyIn(t *testing.T, fsys *FileSystem, path string, data []byte) uint32 {
	t.Helper()
	dest := strings.Split(strings.Trim(path, "/"), "/")
	ino, err := fsys.CopyIn(dest, bytes.NewReader(data), int64(len(data)), dest[len(dest)-1])
	require.NoError(t, err)
	return ino
}

func pattern(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*7 + i/BlockSize)
	}
	return b
}
