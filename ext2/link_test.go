package ext2

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink(t *testing.T) {
	fsys, _ := newTestFS(t)
	_, err := fsys.Mkdir([]string{"d"})
	require.NoError(t, err)
	ino := copyIn(t, fsys, "a", []byte("shared"))
	freeBlocks := fsys.Superblock().FreeBlocksCount

	require.NoError(t, fsys.Link([]string{"a"}, []string{"d", "b"}))

	entry := findTestEntry(t, fsys, "d/b")
	assert.Equal(t, ino, entry.Inode)
	assert.Equal(t, uint8(FT_REG_FILE), entry.FileType)
	inode, err := fsys.Inode(ino)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), inode.LinksCount)
	assert.Equal(t, freeBlocks, fsys.Superblock().FreeBlocksCount)

	got, err := fs.ReadFile(fsys, "d/b")
	require.NoError(t, err)
	assert.Equal(t, "shared", string(got))
	requireConsistent(t, fsys)
}

func TestLinkErrors(t *testing.T) {
	tests := []struct {
		name string
		src  []string
		dest []string
		want error
	}{
		{name: "missing source", src: []string{"nope"}, dest: []string{"x"}, want: ErrNotFound},
		{name: "missing source parent", src: []string{"nope", "a"}, dest: []string{"x"}, want: ErrNotFound},
		{name: "existing destination", src: []string{"a"}, dest: []string{"lost+found"}, want: ErrAlreadyExists},
		{name: "destination is root", src: []string{"a"}, dest: nil, want: ErrAlreadyExists},
		{name: "directory source", src: []string{"lost+found"}, dest: []string{"x"}, want: ErrIsADirectory},
		{name: "root source", src: nil, dest: []string{"x"}, want: ErrIsADirectory},
		{name: "missing destination parent", src: []string{"a"}, dest: []string{"nope", "x"}, want: ErrNotFound},
		{name: "long name", src: []string{"a"}, dest: []string{strings.Repeat("n", MaxNameLen+1)}, want: ErrNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, mem := newTestFS(t)
			copyIn(t, fsys, "a", []byte("a"))
			before := snapshot(mem)

			err := fsys.Link(tt.src, tt.dest)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
			assert.Equal(t, before, mem.Bytes())
		})
	}
}

func TestSymlink(t *testing.T) {
	fsys, _ := newTestFS(t)
	ino, err := fsys.Symlink("/some/where/else", []string{"ln"})
	require.NoError(t, err)

	inode, err := fsys.Inode(ino)
	require.NoError(t, err)
	assert.True(t, inode.IsSymlink())
	assert.Equal(t, uint16(S_IFLNK|0o777), inode.Mode)
	assert.Equal(t, uint32(len("/some/where/else")), inode.Size)
	assert.Equal(t, uint32(sectorsPerBlock), inode.Blocks)
	assert.Equal(t, uint32(testFirstFreeBlock), inode.Block[0])

	entry := findTestEntry(t, fsys, "ln")
	assert.Equal(t, uint8(FT_SYMLINK), entry.FileType)

	target, err := fsys.ReadLink("ln")
	require.NoError(t, err)
	assert.Equal(t, "/some/where/else", target)

	info, err := fsys.Stat("ln")
	require.NoError(t, err)
	assert.Equal(t, fs.ModeSymlink, info.Mode().Type())

	_, err = fsys.Open("ln")
	assert.True(t, errors.Is(err, ErrOpenSymlink))
	requireConsistent(t, fsys)
}

func TestSymlinkErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		dest   []string
		want   error
	}{
		{name: "empty target", target: "", dest: []string{"x"}, want: ErrNotFound},
		{name: "target longer than a block", target: strings.Repeat("t", BlockSize+1), dest: []string{"x"}, want: ErrNameTooLong},
		{name: "existing destination", target: "t", dest: []string{"lost+found"}, want: ErrAlreadyExists},
		{name: "missing parent", target: "t", dest: []string{"nope", "x"}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, mem := newTestFS(t)
			before := snapshot(mem)

			_, err := fsys.Symlink(tt.target, tt.dest)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
			assert.Equal(t, before, mem.Bytes())
		})
	}
}

func TestSymlinkFullBlockTarget(t *testing.T) {
	fsys, _ := newTestFS(t)
	target := strings.Repeat("t", BlockSize)
	_, err := fsys.Symlink(target, []string{"ln"})
	require.NoError(t, err)
	got, err := fsys.ReadLink("ln")
	require.NoError(t, err)
	assert.Equal(t, target, got)
}
