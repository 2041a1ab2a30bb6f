package ext2

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemove(t *testing.T) {
	fsys, _ := newTestFS(t)
	ino := copyIn(t, fsys, "big", pattern(13*BlockSize))
	before, err := fsys.Inode(ino)
	require.NoError(t, err)

	require.NoError(t, fsys.Remove([]string{"big"}))

	_, err = fs.Stat(fsys, "big")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	sb := fsys.Superblock()
	assert.Equal(t, uint32(testFreeBlocks), sb.FreeBlocksCount)
	assert.Equal(t, uint32(testFreeInodes), sb.FreeInodesCount)
	used, err := fsys.InodeBitmap().IsUsed(ino)
	require.NoError(t, err)
	assert.False(t, used)

	// only the link count and deletion time change
	after, err := fsys.Inode(ino)
	require.NoError(t, err)
	want := *before
	want.LinksCount = 0
	want.Dtime = uint32(testNow.Unix())
	if diff := cmp.Diff(want, *after); diff != "" {
		t.Errorf("inode mismatch (-want +got):\n%s", diff)
	}
	requireConsistent(t, fsys)
}

func TestRemoveHardLink(t *testing.T) {
	fsys, _ := newTestFS(t)
	ino := copyIn(t, fsys, "a", []byte("data"))
	require.NoError(t, fsys.Link([]string{"a"}, []string{"b"}))

	require.NoError(t, fsys.Remove([]string{"a"}))

	inode, err := fsys.Inode(ino)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), inode.LinksCount)
	assert.Zero(t, inode.Dtime)
	used, err := fsys.InodeBitmap().IsUsed(ino)
	require.NoError(t, err)
	assert.True(t, used)

	got, err := fs.ReadFile(fsys, "b")
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
	requireConsistent(t, fsys)
}

func TestRemoveSymlink(t *testing.T) {
	fsys, _ := newTestFS(t)
	_, err := fsys.Symlink("target", []string{"ln"})
	require.NoError(t, err)
	require.NoError(t, fsys.Remove([]string{"ln"}))
	assert.Equal(t, uint32(testFreeBlocks), fsys.Superblock().FreeBlocksCount)
	requireConsistent(t, fsys)
}

func TestRemoveErrors(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want error
	}{
		{name: "root", path: nil, want: ErrIsADirectory},
		{name: "directory", path: []string{"lost+found"}, want: ErrIsADirectory},
		{name: "missing", path: []string{"nope"}, want: ErrNotFound},
		{name: "missing parent", path: []string{"nope", "a"}, want: ErrNotFound},
		{name: "dot", path: []string{"."}, want: ErrIsADirectory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys, mem := newTestFS(t)
			copyIn(t, fsys, "a", []byte("a"))
			before := snapshot(mem)

			err := fsys.Remove(tt.path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err)
			assert.Equal(t, before, mem.Bytes())
		})
	}
}

func TestRestore(t *testing.T) {
	fsys, mem := newTestFS(t)
	copyIn(t, fsys, "a", []byte("first"))
	copyIn(t, fsys, "big", pattern(13*BlockSize))
	copyIn(t, fsys, "c", []byte("last"))
	before := snapshot(mem)

	require.NoError(t, fsys.Remove([]string{"big"}))
	require.NoError(t, fsys.Restore([]string{"big"}))

	if diff := cmp.Diff(before, mem.Bytes()); diff != "" {
		t.Errorf("image changed after remove and restore (-want +got):\n%s", diff)
	}
	got, err := fs.ReadFile(fsys, "big")
	require.NoError(t, err)
	assert.Equal(t, pattern(13*BlockSize), got)
	requireConsistent(t, fsys)
}

func TestRestoreLastEntry(t *testing.T) {
	fsys, mem := newTestFS(t)
	copyIn(t, fsys, "a", []byte("a"))
	copyIn(t, fsys, "z", []byte("z"))
	before := snapshot(mem)

	require.NoError(t, fsys.Remove([]string{"z"}))
	require.NoError(t, fsys.Restore([]string{"z"}))
	assert.Equal(t, before, mem.Bytes())
}

func TestRestoreNested(t *testing.T) {
	fsys, mem := newTestFS(t)
	for _, name := range []string{"a", "b", "c"} {
		copyIn(t, fsys, name, nil)
	}
	before := snapshot(mem)

	require.NoError(t, fsys.Remove([]string{"b"}))
	require.NoError(t, fsys.Remove([]string{"a"}))
	require.NoError(t, fsys.Restore([]string{"b"}))
	require.NoError(t, fsys.Restore([]string{"a"}))

	if diff := cmp.Diff(before, mem.Bytes()); diff != "" {
		t.Errorf("image changed (-want +got):\n%s", diff)
	}
	requireConsistent(t, fsys)
}

func TestRestoreInSubdirectory(t *testing.T) {
	fsys, _ := newTestFS(t)
	_, err := fsys.Mkdir([]string{"d"})
	require.NoError(t, err)
	copyIn(t, fsys, "d/x", []byte("x"))
	copyIn(t, fsys, "d/y", []byte("y"))

	require.NoError(t, fsys.Remove([]string{"d", "x"}))
	require.NoError(t, fsys.Restore([]string{"d", "x"}))

	got, err := fs.ReadFile(fsys, "d/x")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
	requireConsistent(t, fsys)
}

func TestRestoreErrors(t *testing.T) {
	t.Run("never existed", func(t *testing.T) {
		fsys, _ := newTestFS(t)
		err := fsys.Restore([]string{"ghost"})
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrUnrestorable))
	})

	t.Run("live name", func(t *testing.T) {
		fsys, _ := newTestFS(t)
		copyIn(t, fsys, "a", nil)
		err := fsys.Restore([]string{"a"})
		assert.True(t, errors.Is(err, ErrAlreadyExists))
	})

	t.Run("root", func(t *testing.T) {
		fsys, _ := newTestFS(t)
		err := fsys.Restore(nil)
		assert.True(t, errors.Is(err, ErrIsADirectory))
	})

	t.Run("inode reused", func(t *testing.T) {
		fsys, mem := newTestFS(t)
		copyIn(t, fsys, "a", nil)
		copyIn(t, fsys, "b", nil)
		require.NoError(t, fsys.Remove([]string{"a"}))
		ino, err := fsys.Mkdir([]string{"c"})
		require.NoError(t, err)
		require.Equal(t, uint32(testFirstFreeInode), ino)
		before := snapshot(mem)

		err = fsys.Restore([]string{"a"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnrestorable))
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, before, mem.Bytes())
	})

	t.Run("block reused", func(t *testing.T) {
		fsys, mem := newTestFS(t)
		copyIn(t, fsys, "a", []byte("a"))
		copyIn(t, fsys, "b", []byte("b"))
		require.NoError(t, fsys.Remove([]string{"a"}))
		// takes the freed block but not the freed inode
		inodes := fsys.InodeBitmap()
		require.NoError(t, inodes.SetUsed(testFirstFreeInode, true))
		_, err := fsys.Symlink("t", []string{"s"})
		require.NoError(t, err)
		require.NoError(t, inodes.SetUsed(testFirstFreeInode, false))
		before := snapshot(mem)

		err = fsys.Restore([]string{"a"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnrestorable))
		assert.Equal(t, before, mem.Bytes())
	})
}
