package ext2

import (
	"github.com/diskfs/go-diskfs/util/bitmap"
	"golang.org/x/xerrors"
)

// Bitmap is an allocation bitmap stored in one block.
// Bit 0 of byte 0 maps to index first; a set bit means allocated.
// Every call goes back to the device, nothing is cached.
type Bitmap struct {
	ext2  *FileSystem
	name  string
	block uint32
	first uint32
	count uint32
}

// InodeBitmap covers inodes 1..InodesCount.
func (ext2 *FileSystem) InodeBitmap() *Bitmap {
	return &Bitmap{
		ext2:  ext2,
		name:  "inode",
		block: ext2.gd.GetInodeBitmapLoc(),
		first: 1,
		count: ext2.sb.InodesCount,
	}
}

// BlockBitmap covers blocks FirstDataBlock..BlocksCount-1.
func (ext2 *FileSystem) BlockBitmap() *Bitmap {
	return &Bitmap{
		ext2:  ext2,
		name:  "block",
		block: ext2.gd.GetBlockBitmapLoc(),
		first: ext2.sb.FirstDataBlock,
		count: ext2.sb.GetBlocksInGroup(),
	}
}

func (b *Bitmap) read() (*bitmap.Bitmap, error) {
	buf, err := b.ext2.readBlock(b.block)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s bitmap: %w", b.name, err)
	}
	bs := bitmap.NewBits(bitsPerBitmapBlock)
	bs.FromBytes(buf)
	return bs, nil
}

func (b *Bitmap) write(bs *bitmap.Bitmap) error {
	buf := make([]byte, BlockSize)
	copy(buf, bs.ToBytes())
	if err := b.ext2.writeBlock(b.block, buf); err != nil {
		return xerrors.Errorf("failed to write %s bitmap: %w", b.name, err)
	}
	return nil
}

func (b *Bitmap) bit(index uint32) (int, error) {
	if index < b.first || index-b.first >= b.count {
		return 0, xerrors.Errorf("%s %d outside bitmap [%d, %d]: %w", b.name, index, b.first, b.first+b.count-1, ErrCorrupted)
	}
	return int(index - b.first), nil
}

// Contains reports whether index is covered by the bitmap.
func (b *Bitmap) Contains(index uint32) bool {
	_, err := b.bit(index)
	return err == nil
}

func (b *Bitmap) IsUsed(index uint32) (bool, error) {
	bit, err := b.bit(index)
	if err != nil {
		return false, err
	}
	bs, err := b.read()
	if err != nil {
		return false, err
	}
	used, err := bs.IsSet(bit)
	if err != nil {
		return false, xerrors.Errorf("failed to test %s %d: %w", b.name, index, err)
	}
	return used, nil
}

// SetUsed sets or clears the bit of index and writes the bitmap back.
func (b *Bitmap) SetUsed(index uint32, used bool) error {
	bit, err := b.bit(index)
	if err != nil {
		return err
	}
	bs, err := b.read()
	if err != nil {
		return err
	}
	if used {
		err = bs.Set(bit)
	} else {
		err = bs.Clear(bit)
	}
	if err != nil {
		return xerrors.Errorf("failed to update %s %d: %w", b.name, index, err)
	}
	return b.write(bs)
}

// ScanFirstFree returns the lowest free index that is not below from.
func (b *Bitmap) ScanFirstFree(from uint32) (uint32, error) {
	if from < b.first {
		from = b.first
	}
	bs, err := b.read()
	if err != nil {
		return 0, err
	}
	for index := from; index-b.first < b.count; index++ {
		used, err := bs.IsSet(int(index - b.first))
		if err != nil {
			return 0, xerrors.Errorf("failed to test %s %d: %w", b.name, index, err)
		}
		if !used {
			return index, nil
		}
	}
	return 0, xerrors.Errorf("no free %s: %w", b.name, ErrOutOfSpace)
}

// CountFree counts the clear bits over every valid index.
func (b *Bitmap) CountFree() (uint32, error) {
	bs, err := b.read()
	if err != nil {
		return 0, err
	}
	var free uint32
	for bit := 0; bit < int(b.count); bit++ {
		used, err := bs.IsSet(bit)
		if err != nil {
			return 0, xerrors.Errorf("failed to test %s bit %d: %w", b.name, bit, err)
		}
		if !used {
			free++
		}
	}
	return free, nil
}
