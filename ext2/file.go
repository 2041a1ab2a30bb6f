package ext2

import (
	"io"
	"io/fs"
	"time"

	"golang.org/x/xerrors"
)

var (
	_ fs.File        = &File{}
	_ fs.ReadDirFile = &File{}
	_ fs.FileInfo    = &FileInfo{}
	_ fs.DirEntry    = dirEntry{}
)

// File is implemented io/fs File interface
type File struct {
	FileInfo
	fs       *FileSystem
	filePath string
	offset   int64
	blocks   []uint32
	listed   bool
	pending  []fs.DirEntry
}

// FileInfo is implemented io/fs FileInfo interface
type FileInfo struct {
	name  string
	inode *Inode
	ino   uint32

	mode fs.FileMode
}

// Type dirEntry is implemented io/fs DirEntry interface
type dirEntry struct {
	FileInfo
}

func (d dirEntry) Type() fs.FileMode {
	return d.FileInfo.Mode().Type()
}

func (d dirEntry) Info() (fs.FileInfo, error) { return d.FileInfo, nil }

// FilePath is the slash separated path the file was opened with.
func (f File) FilePath() string {
	return f.filePath
}

func (fi FileInfo) Name() string {
	return fi.name
}

// Ino is the inode number
func (fi FileInfo) Ino() uint32 {
	return fi.ino
}

func (fi FileInfo) IsSymlink() bool {
	return fi.Mode()&fs.ModeSymlink != 0
}

func (fi FileInfo) Size() int64 {
	return fi.inode.GetSize()
}

func (fi FileInfo) Mode() fs.FileMode {
	return fi.mode
}

func (fi FileInfo) ModTime() time.Time {
	return time.Unix(int64(fi.inode.Mtime), 0)
}

func (fi FileInfo) IsDir() bool {
	return fi.inode.IsDir()
}

func (fi FileInfo) Sys() interface{} {
	return fi.inode
}

func (f *File) Stat() (fs.FileInfo, error) {
	return &f.FileInfo, nil
}

func (f *File) Read(p []byte) (int, error) {
	if f.IsDir() {
		return 0, &fs.PathError{Op: "read", Path: f.filePath, Err: fs.ErrInvalid}
	}
	if f.offset >= f.Size() {
		return 0, io.EOF
	}

	index := f.offset / BlockSize
	within := f.offset % BlockSize
	n := int64(len(p))
	if rest := BlockSize - within; n > rest {
		n = rest
	}
	if rest := f.Size() - f.offset; n > rest {
		n = rest
	}

	if index >= int64(len(f.blocks)) || f.blocks[index] == 0 {
		// hole
		for i := int64(0); i < n; i++ {
			p[i] = 0
		}
	} else {
		buf, err := f.fs.readBlock(f.blocks[index])
		if err != nil {
			return 0, xerrors.Errorf("failed to read block: %w", err)
		}
		copy(p, buf[within:within+n])
	}
	f.offset += n
	return int(n), nil
}

// ReadDir lists a directory opened with Open.
func (f *File) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: f.filePath, Err: fs.ErrInvalid}
	}
	if !f.listed {
		entries, err := f.fs.readDirEntry(f.filePath)
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: f.filePath, Err: err}
		}
		f.pending, f.listed = entries, true
	}

	if n <= 0 {
		entries := f.pending
		f.pending = nil
		return entries, nil
	}
	if len(f.pending) == 0 {
		return nil, io.EOF
	}
	if n > len(f.pending) {
		n = len(f.pending)
	}
	entries := f.pending[:n]
	f.pending = f.pending[n:]
	return entries, nil
}

func (f *File) Close() error {
	return nil
}
