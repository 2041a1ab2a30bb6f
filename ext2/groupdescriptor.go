package ext2

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// GroupDescriptor is 32 byte
type GroupDescriptor struct {
	BlockBitmap     uint32   `struc:"uint32,little"`
	InodeBitmap     uint32   `struc:"uint32,little"`
	InodeTable      uint32   `struc:"uint32,little"`
	FreeBlocksCount uint16   `struc:"uint16,little"`
	FreeInodesCount uint16   `struc:"uint16,little"`
	UsedDirsCount   uint16   `struc:"uint16,little"`
	Pad             uint16   `struc:"uint16,little"`
	Reserved        [12]byte `struc:"[12]byte"`
}

func parseGroupDescriptor(b []byte, sb *Superblock) (GroupDescriptor, error) {
	var gd GroupDescriptor
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &gd); err != nil {
		return GroupDescriptor{}, xerrors.Errorf("failed to parse group descriptor: %w", err)
	}

	tableBlocks := uint32(divWithRoundUp(int64(sb.InodesCount)*sb.GetInodeSize(), BlockSize))
	for _, loc := range []uint32{gd.BlockBitmap, gd.InodeBitmap, gd.InodeTable, gd.InodeTable + tableBlocks - 1} {
		if loc < sb.FirstDataBlock || loc >= sb.BlocksCount {
			return GroupDescriptor{}, xerrors.Errorf("group descriptor points at block %d: %w", loc, ErrCorrupted)
		}
	}
	return gd, nil
}

func (gd *GroupDescriptor) bytes() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, GroupDescSize))
	if err := binary.Write(buf, binary.LittleEndian, gd); err != nil {
		return nil, xerrors.Errorf("failed to binary write group descriptor: %w", err)
	}
	return buf.Bytes(), nil
}

// GetInodeBitmapLoc is ...
func (gd *GroupDescriptor) GetInodeBitmapLoc() uint32 {
	return gd.InodeBitmap
}

// GetInodeTableLoc is ...
func (gd *GroupDescriptor) GetInodeTableLoc() uint32 {
	return gd.InodeTable
}

// GetBlockBitmapLoc is ...
func (gd *GroupDescriptor) GetBlockBitmapLoc() uint32 {
	return gd.BlockBitmap
}
