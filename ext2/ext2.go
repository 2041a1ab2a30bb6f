package ext2

import (
	"io"
)

/*
Ext2 Single Group Block Layout
+-----------------+------------------+------------------+-------------------+--------------+-------------+------------------+
| Boot Block      | ext2 Super Block | Group Descriptor | Data Block Bitmap | inode Bitmap | inode Table | Data Blocks      |
+-----------------+------------------+------------------+-------------------+--------------+-------------+------------------+
| 1024 bytes      | 1 block          | 1 block          | 1 block           | 1 block      | many blocks | many more blocks |
+-----------------+------------------+------------------+-------------------+--------------+-------------+------------------+
*/

const (
	BlockSize        = 1024
	SuperBlockOffset = 1024
	SuperBlockSize   = 1024
	GroupDescOffset  = SuperBlockOffset + SuperBlockSize
	GroupDescSize    = 32
	InodeRecordSize  = 128

	Magic = 0xEF53

	RootInode      = 2
	LostFoundInode = 11
	// GoodOldFirstIno is the first non-reserved inode of a revision 0 filesystem.
	GoodOldFirstIno = 11

	DirectBlocks       = 12
	SingleIndirectSlot = 12
	PointersPerBlock   = BlockSize / 4
	MaxFileBlocks      = DirectBlocks + PointersPerBlock
	sectorsPerBlock    = BlockSize / 512
	bitsPerBitmapBlock = BlockSize * 8
	MaxNameLen         = 255
)

// Mode type bits
const (
	S_IFMT   = 0xF000
	S_IFSOCK = 0xC000
	S_IFLNK  = 0xA000
	S_IFREG  = 0x8000
	S_IFBLK  = 0x6000
	S_IFDIR  = 0x4000
	S_IFCHR  = 0x2000
	S_IFIFO  = 0x1000
)

// Directory entry file types
const (
	FT_UNKNOWN = iota
	FT_REG_FILE
	FT_DIR
	FT_CHRDEV
	FT_BLKDEV
	FT_FIFO
	FT_SOCK
	FT_SYMLINK
)

const (
	FEATURE_INCOMPAT_FILETYPE = 0x0002
)

// Device is the random access byte store an image lives in.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

func divWithRoundUp(a int64, b int64) int64 {
	n := a / b
	if a%b != 0 {
		return n + 1
	}
	return n
}

func align4(n int) int {
	return (n + 3) &^ 3
}
