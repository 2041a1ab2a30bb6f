package ext2

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// Superblock is ref https://www.nongnu.org/ext2-doc/ext2.html#superblock
type Superblock struct {
	InodesCount          uint32    `struc:"uint32,little"`
	BlocksCount          uint32    `struc:"uint32,little"`
	RBlocksCount         uint32    `struc:"uint32,little"`
	FreeBlocksCount      uint32    `struc:"uint32,little"`
	FreeInodesCount      uint32    `struc:"uint32,little"`
	FirstDataBlock       uint32    `struc:"uint32,little"`
	LogBlockSize         uint32    `struc:"uint32,little"`
	LogFragSize          uint32    `struc:"uint32,little"`
	BlocksPerGroup       uint32    `struc:"uint32,little"`
	FragsPerGroup        uint32    `struc:"uint32,little"`
	InodesPerGroup       uint32    `struc:"uint32,little"`
	Mtime                uint32    `struc:"uint32,little"`
	Wtime                uint32    `struc:"uint32,little"`
	MntCount             uint16    `struc:"uint16,little"`
	MaxMntCount          uint16    `struc:"uint16,little"`
	Magic                uint16    `struc:"uint16,little"`
	State                uint16    `struc:"uint16,little"`
	Errors               uint16    `struc:"uint16,little"`
	MinorRevLevel        uint16    `struc:"uint16,little"`
	Lastcheck            uint32    `struc:"uint32,little"`
	Checkinterval        uint32    `struc:"uint32,little"`
	CreatorOs            uint32    `struc:"uint32,little"`
	RevLevel             uint32    `struc:"uint32,little"`
	DefResuid            uint16    `struc:"uint16,little"`
	DefResgid            uint16    `struc:"uint16,little"`
	FirstIno             uint32    `struc:"uint32,little"`
	InodeSize            uint16    `struc:"uint16,little"`
	BlockGroupNr         uint16    `struc:"uint16,little"`
	FeatureCompat        uint32    `struc:"uint32,little"`
	FeatureIncompat      uint32    `struc:"uint32,little"`
	FeatureRoCompat      uint32    `struc:"uint32,little"`
	UUID                 [16]byte  `struc:"[16]byte"`
	VolumeName           [16]byte  `struc:"[16]byte"`
	LastMounted          [64]byte  `struc:"[64]byte"`
	AlgorithmUsageBitmap uint32    `struc:"uint32,little"`
	PreallocBlocks       byte      `struc:"byte"`
	PreallocDirBlocks    byte      `struc:"byte"`
	Padding1             uint16    `struc:"uint16,little"`
	Reserved             [816]byte `struc:"[816]byte"`
}

func parseSuperBlock(b []byte) (Superblock, error) {
	var sb Superblock
	if len(b) != SuperBlockSize {
		return Superblock{}, xerrors.Errorf("super block is %d bytes: %w", len(b), ErrCorrupted)
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &sb); err != nil {
		return Superblock{}, xerrors.Errorf("failed to binary read super block: %w", err)
	}
	if err := sb.validate(); err != nil {
		return Superblock{}, err
	}
	return sb, nil
}

func (sb *Superblock) validate() error {
	if sb.Magic != Magic {
		return xerrors.Errorf("bad magic 0x%04x: %w", sb.Magic, ErrUnsupported)
	}
	if sb.GetBlockSize() != BlockSize {
		return xerrors.Errorf("block size %d: %w", sb.GetBlockSize(), ErrUnsupported)
	}
	if sb.FirstDataBlock != 1 {
		return xerrors.Errorf("first data block %d: %w", sb.FirstDataBlock, ErrUnsupported)
	}
	if sb.BlocksCount <= sb.FirstDataBlock || sb.InodesCount < sb.GetFirstIno() {
		return xerrors.Errorf("blocks %d, inodes %d: %w", sb.BlocksCount, sb.InodesCount, ErrCorrupted)
	}
	if sb.GetGroupCount() != 1 {
		return xerrors.Errorf("%d block groups: %w", sb.GetGroupCount(), ErrUnsupported)
	}
	if sb.BlocksCount-sb.FirstDataBlock > bitsPerBitmapBlock || sb.InodesCount > bitsPerBitmapBlock {
		return xerrors.Errorf("bitmaps larger than one block: %w", ErrUnsupported)
	}
	if sb.GetInodeSize() < InodeRecordSize {
		return xerrors.Errorf("inode size %d: %w", sb.GetInodeSize(), ErrUnsupported)
	}
	return nil
}

func (sb *Superblock) bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SuperBlockSize))
	if err := binary.Write(buf, binary.LittleEndian, sb); err != nil {
		return nil, xerrors.Errorf("failed to binary write super block: %w", err)
	}
	return buf.Bytes(), nil
}

func (sb *Superblock) FeatureIncompatFiletype() bool {
	return (sb.FeatureIncompat&FEATURE_INCOMPAT_FILETYPE != 0)
}

func (sb *Superblock) GetBlockSize() int64 {
	return int64(1024 << uint(sb.LogBlockSize))
}

// GetBlocksInGroup is the number of blocks covered by the block bitmap.
func (sb *Superblock) GetBlocksInGroup() uint32 {
	return sb.BlocksCount - sb.FirstDataBlock
}

func (sb *Superblock) GetGroupCount() int64 {
	perGroup := int64(sb.BlocksPerGroup)
	if perGroup == 0 {
		return 0
	}
	return divWithRoundUp(int64(sb.GetBlocksInGroup()), perGroup)
}

// GetFirstIno returns the first inode that is not reserved.
func (sb *Superblock) GetFirstIno() uint32 {
	if sb.RevLevel == 0 {
		return GoodOldFirstIno
	}
	return sb.FirstIno
}

func (sb *Superblock) GetInodeSize() int64 {
	if sb.RevLevel == 0 {
		return InodeRecordSize
	}
	return int64(sb.InodeSize)
}
