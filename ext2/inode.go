package ext2

import (
	"bytes"
	"encoding/binary"
	"io/fs"

	"golang.org/x/xerrors"
)

// Inode is index-node
type Inode struct {
	Mode       uint16     `struc:"uint16,little"`
	UID        uint16     `struc:"uint16,little"`
	Size       uint32     `struc:"uint32,little"`
	Atime      uint32     `struc:"uint32,little"`
	Ctime      uint32     `struc:"uint32,little"`
	Mtime      uint32     `struc:"uint32,little"`
	Dtime      uint32     `struc:"uint32,little"`
	GID        uint16     `struc:"uint16,little"`
	LinksCount uint16     `struc:"uint16,little"`
	Blocks     uint32     `struc:"uint32,little"`
	Flags      uint32     `struc:"uint32,little"`
	Osd1       uint32     `struc:"uint32,little"`
	Block      [15]uint32 `struc:"[15]uint32,little"`
	Generation uint32     `struc:"uint32,little"`
	FileACL    uint32     `struc:"uint32,little"`
	DirACL     uint32     `struc:"uint32,little"`
	Faddr      uint32     `struc:"uint32,little"`
	Osd2       [12]byte   `struc:"[12]byte"`
}

func parseInode(b []byte) (*Inode, error) {
	inode := Inode{}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &inode); err != nil {
		return nil, xerrors.Errorf("failed to read binary: %w", err)
	}
	return &inode, nil
}

func (i *Inode) bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, InodeRecordSize))
	if err := binary.Write(buf, binary.LittleEndian, i); err != nil {
		return nil, xerrors.Errorf("failed to write binary: %w", err)
	}
	return buf.Bytes(), nil
}

func (i Inode) IsDir() bool {
	return i.Mode&S_IFMT == S_IFDIR
}

func (i Inode) IsRegular() bool {
	return i.Mode&S_IFMT == S_IFREG
}

func (i Inode) IsSymlink() bool {
	return i.Mode&S_IFMT == S_IFLNK
}

// GetSize is get inode file size
func (i *Inode) GetSize() int64 {
	return int64(i.Size)
}

// FileType is the directory entry type tag matching the inode mode.
func (i *Inode) FileType() uint8 {
	switch i.Mode & S_IFMT {
	case S_IFREG:
		return FT_REG_FILE
	case S_IFDIR:
		return FT_DIR
	case S_IFCHR:
		return FT_CHRDEV
	case S_IFBLK:
		return FT_BLKDEV
	case S_IFIFO:
		return FT_FIFO
	case S_IFSOCK:
		return FT_SOCK
	case S_IFLNK:
		return FT_SYMLINK
	}
	return FT_UNKNOWN
}

// FileMode converts the on-disk mode into an io/fs mode.
func (i *Inode) FileMode() fs.FileMode {
	mode := fs.FileMode(i.Mode & 0o777)
	switch i.Mode & S_IFMT {
	case S_IFDIR:
		mode |= fs.ModeDir
	case S_IFLNK:
		mode |= fs.ModeSymlink
	case S_IFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case S_IFBLK:
		mode |= fs.ModeDevice
	case S_IFIFO:
		mode |= fs.ModeNamedPipe
	case S_IFSOCK:
		mode |= fs.ModeSocket
	}
	return mode
}
