package ext2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMkdir(t *testing.T) {
	fsys, mem := newTestFS(t)

	ino, err := fsys.Mkdir([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, uint32(testFirstFreeInode), ino)

	dir, err := fsys.Inode(ino)
	require.NoError(t, err)
	assert.True(t, dir.IsDir())
	assert.Equal(t, uint16(S_IFDIR|0o755), dir.Mode)
	assert.Equal(t, uint16(2), dir.LinksCount)
	assert.Equal(t, uint32(BlockSize), dir.Size)
	assert.Equal(t, uint32(testFirstFreeBlock), dir.Block[0])

	entries, err := fsys.listEntries(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ".", entries[0].Name)
	assert.Equal(t, ino, entries[0].Inode)
	assert.Equal(t, uint16(12), entries[0].RecLen)
	assert.Equal(t, "..", entries[1].Name)
	assert.Equal(t, uint32(RootInode), entries[1].Inode)
	assert.Equal(t, uint16(BlockSize-12), entries[1].RecLen)

	root, err := fsys.Inode(RootInode)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), root.LinksCount)
	assert.Equal(t, uint32(testNow.Unix()), root.Mtime)
	assert.Equal(t, uint16(3), fsys.GroupDescriptor().UsedDirsCount)

	entry := findTestEntry(t, fsys, "a")
	assert.Equal(t, uint8(FT_DIR), entry.FileType)

	// nested
	sub, err := fsys.Mkdir([]string{"a", "b"})
	require.NoError(t, err)
	subDir, err := fsys.Inode(sub)
	require.NoError(t, err)
	entries, err = fsys.listEntries(subDir)
	require.NoError(t, err)
	assert.Equal(t, ino, entries[1].Inode)
	dir, err = fsys.Inode(ino)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), dir.LinksCount)

	// on-disk counters match the in-memory ones
	reopened := openTestFS(t, mem)
	assert.Equal(t, fsys.Superblock(), reopened.Superblock())
	assert.Equal(t, fsys.GroupDescriptor(), reopened.GroupDescriptor())
	requireConsistent(t, reopened)
}

func TestMkdirErrors(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want error
	}{
		{name: "root", path: nil, want: ErrAlreadyExists},
		{name: "existing", path: []string{"lost+found"}, want: ErrAlreadyExists},
		{name: "missing parent", path: []string{"x", "y"}, want: ErrNotFound},
		{name: "parent is a file", path: []string{"f", "y"}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, mem := newTestFS(t)
			copyIn(t, fsys, "f", []byte("f"))
			before := snapshot(mem)

			_, err := fsys.Mkdir(tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
			assert.Equal(t, before, mem.Bytes())
		})
	}
}
