package ext2

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyIn(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantBlocks uint32
	}{
		{name: "empty", size: 0, wantBlocks: 0},
		{name: "partial block", size: 100, wantBlocks: 2},
		{name: "exact block", size: BlockSize, wantBlocks: 2},
		{name: "all direct", size: 12 * BlockSize, wantBlocks: 24},
		{name: "single indirect", size: 13*BlockSize + 1, wantBlocks: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, _ := newTestFS(t)
			data := pattern(tt.size)
			ino := copyIn(t, fsys, "file", data)
			assert.Equal(t, uint32(testFirstFreeInode), ino)

			inode, err := fsys.Inode(ino)
			require.NoError(t, err)
			assert.True(t, inode.IsRegular())
			assert.Equal(t, uint16(S_IFREG|0o644), inode.Mode)
			assert.Equal(t, uint32(tt.size), inode.Size)
			assert.Equal(t, tt.wantBlocks, inode.Blocks)
			assert.Equal(t, uint16(1), inode.LinksCount)
			assert.Equal(t, uint32(testNow.Unix()), inode.Mtime)

			got, err := fs.ReadFile(fsys, "file")
			require.NoError(t, err)
			if diff := cmp.Diff(data, got); tt.size > 0 && diff != "" {
				t.Errorf("ReadFile() mismatch (-want +got):\n%s", diff)
			}
			assert.Len(t, got, tt.size)

			sb := fsys.Superblock()
			assert.Equal(t, uint32(testFreeBlocks)-tt.wantBlocks/2, sb.FreeBlocksCount)
			assert.Equal(t, uint32(testFreeInodes-1), sb.FreeInodesCount)
			requireConsistent(t, fsys)
		})
	}
}

func TestCopyInIndirectLayout(t *testing.T) {
	fsys, mem := newTestFS(t)
	ino := copyIn(t, fsys, "big", pattern(13*BlockSize))
	inode, err := fsys.Inode(ino)
	require.NoError(t, err)

	for i := 0; i < DirectBlocks; i++ {
		assert.Equal(t, uint32(testFirstFreeBlock+i), inode.Block[i])
	}
	indirect := inode.Block[SingleIndirectSlot]
	assert.Equal(t, uint32(23), indirect)

	addrs, err := fsys.GetBlockAddresses(inode)
	require.NoError(t, err)
	assert.Len(t, addrs, 13)
	assert.Equal(t, uint32(24), addrs[12])

	refs, err := fsys.ReferencedBlocks(inode)
	require.NoError(t, err)
	assert.Len(t, refs, 14)
	assert.Equal(t, indirect, refs[12])

	// rest of the indirect block stays zero
	raw := mem.Bytes()[int(indirect)*BlockSize+4 : int(indirect+1)*BlockSize]
	assert.Equal(t, make([]byte, BlockSize-4), raw)
}

func TestCopyInIntoDirectory(t *testing.T) {
	fsys, _ := newTestFS(t)
	_, err := fsys.Mkdir([]string{"docs"})
	require.NoError(t, err)

	_, err = fsys.CopyIn([]string{"docs"}, strings.NewReader("readme"), 6, "README")
	require.NoError(t, err)
	got, err := fs.ReadFile(fsys, "docs/README")
	require.NoError(t, err)
	assert.Equal(t, "readme", string(got))

	_, err = fsys.CopyIn(nil, strings.NewReader("top"), 3, "top.txt")
	require.NoError(t, err)
	got, err = fs.ReadFile(fsys, "top.txt")
	require.NoError(t, err)
	assert.Equal(t, "top", string(got))

	_, err = fsys.CopyIn([]string{"docs"}, strings.NewReader("again"), 5, "README")
	assert.True(t, errors.Is(err, ErrAlreadyExists), err)
}

func TestCopyInErrors(t *testing.T) {
	tests := []struct {
		name string
		dest []string
		size int64
		want error
	}{
		{name: "existing file", dest: []string{"a"}, size: 1, want: ErrAlreadyExists},
		{name: "missing parent", dest: []string{"nope", "x"}, size: 1, want: ErrNotFound},
		{name: "parent is a file", dest: []string{"a", "x"}, size: 1, want: ErrNotFound},
		{name: "beyond single indirection", dest: []string{"huge"}, size: (MaxFileBlocks + 1) * BlockSize, want: ErrUnsupportedFileSize},
		{name: "more blocks than free", dest: []string{"big"}, size: (testFreeBlocks - 1) * BlockSize, want: ErrOutOfSpace},
		{name: "long name", dest: []string{strings.Repeat("n", MaxNameLen+1)}, size: 1, want: ErrNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, mem := newTestFS(t)
			copyIn(t, fsys, "a", []byte("a"))
			before := snapshot(mem)

			_, err := fsys.CopyIn(tt.dest, bytes.NewReader(make([]byte, tt.size)), tt.size, "src")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
			// checks run before anything is allocated
			assert.Equal(t, before, mem.Bytes())
		})
	}
}

func TestCopyInDirectoryFull(t *testing.T) {
	fsys, mem := newTestFS(t)
	for _, c := range "abcd" {
		copyIn(t, fsys, strings.Repeat(string(c), 200), nil)
	}
	before := snapshot(mem)

	_, err := fsys.CopyIn([]string{strings.Repeat("e", 200)}, strings.NewReader("x"), 1, "src")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDirectoryFull))
	assert.Equal(t, before, mem.Bytes())
}

func TestCopyInOutOfInodes(t *testing.T) {
	fsys, _ := newTestFS(t)
	for i := 0; i < testFreeInodes; i++ {
		copyIn(t, fsys, string(rune('a'+i)), nil)
	}
	_, err := fsys.CopyIn([]string{"z"}, strings.NewReader(""), 0, "src")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfSpace))
}
