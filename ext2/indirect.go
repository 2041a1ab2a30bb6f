package ext2

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// BlockAddressing is the layout of Inode.Block
type BlockAddressing struct {
	DirectBlock         [12]uint32 `struc:"[12]uint32,little"`
	SingleIndirectBlock uint32     `struc:"uint32,little"`
	DoubleIndirectBlock uint32     `struc:"uint32,little"`
	TripleIndirectBlock uint32     `struc:"uint32,little"`
}

func (i *Inode) addressing() BlockAddressing {
	var a BlockAddressing
	copy(a.DirectBlock[:], i.Block[:DirectBlocks])
	a.SingleIndirectBlock = i.Block[SingleIndirectSlot]
	a.DoubleIndirectBlock = i.Block[13]
	a.TripleIndirectBlock = i.Block[14]
	return a
}

// DataBlockCount is the number of data blocks derived from the sector count,
// excluding the single indirect block itself.
func (i *Inode) DataBlockCount() (int, error) {
	n := int(i.Blocks / sectorsPerBlock)
	if n > DirectBlocks {
		n--
	}
	if n > MaxFileBlocks {
		return 0, xerrors.Errorf("%d data blocks: %w", n, ErrUnsupportedFileSize)
	}
	return n, nil
}

// blocksForSize returns the data block count and the total block count
// (including the indirect block) needed to hold size bytes.
func blocksForSize(size int64) (data int, total int, err error) {
	data = int(divWithRoundUp(size, BlockSize))
	if data > MaxFileBlocks {
		return 0, 0, xerrors.Errorf("%d bytes: %w", size, ErrUnsupportedFileSize)
	}
	total = data
	if data > DirectBlocks {
		total++
	}
	return data, total, nil
}

func (ext2 *FileSystem) resolveSingleIndirectBlockAddress(singleIndirectBlockAddress uint32) ([]uint32, error) {
	buf, err := ext2.readBlock(singleIndirectBlockAddress)
	if err != nil {
		return nil, xerrors.Errorf("failed to read single indirect block(%d): %w", singleIndirectBlockAddress, err)
	}

	blockAddresses := make([]uint32, PointersPerBlock)
	for i := range blockAddresses {
		blockAddresses[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return blockAddresses, nil
}

// GetBlockAddresses returns the physical block of every logical block in order.
// Holes are reported as 0.
func (ext2 *FileSystem) GetBlockAddresses(inode *Inode) ([]uint32, error) {
	n, err := inode.DataBlockCount()
	if err != nil {
		return nil, err
	}
	addresses := inode.addressing()

	blockAddresses := make([]uint32, 0, n)
	for i := 0; i < n && i < DirectBlocks; i++ {
		blockAddresses = append(blockAddresses, addresses.DirectBlock[i])
	}
	if n <= DirectBlocks {
		return blockAddresses, nil
	}

	if addresses.SingleIndirectBlock == 0 {
		for i := DirectBlocks; i < n; i++ {
			blockAddresses = append(blockAddresses, 0)
		}
		return blockAddresses, nil
	}
	singleIndirectBlockAddresses, err := ext2.resolveSingleIndirectBlockAddress(addresses.SingleIndirectBlock)
	if err != nil {
		return nil, xerrors.Errorf("failed to read single indirect block addressing: %w", err)
	}
	blockAddresses = append(blockAddresses, singleIndirectBlockAddresses[:n-DirectBlocks]...)
	return blockAddresses, nil
}

// ReferencedBlocks returns every block the inode owns: its non-zero data
// blocks plus the single indirect block.
func (ext2 *FileSystem) ReferencedBlocks(inode *Inode) ([]uint32, error) {
	blockAddresses, err := ext2.GetBlockAddresses(inode)
	if err != nil {
		return nil, err
	}

	var referenced []uint32
	for i, blockAddress := range blockAddresses {
		if i == DirectBlocks && inode.Block[SingleIndirectSlot] != 0 {
			referenced = append(referenced, inode.Block[SingleIndirectSlot])
		}
		if blockAddress == 0 {
			continue
		}
		referenced = append(referenced, blockAddress)
	}
	return referenced, nil
}
