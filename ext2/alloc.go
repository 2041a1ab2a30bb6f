package ext2

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// allocInode takes the lowest free non-reserved inode.
func (ext2 *FileSystem) allocInode() (uint32, error) {
	bm := ext2.InodeBitmap()
	ino, err := bm.ScanFirstFree(ext2.sb.GetFirstIno())
	if err != nil {
		return 0, err
	}
	if err := bm.SetUsed(ino, true); err != nil {
		return 0, xerrors.Errorf("failed to mark inode %d used: %w", ino, err)
	}
	if err := ext2.adjustFreeInodes(-1); err != nil {
		return 0, err
	}
	ext2.logger.Debug("allocated inode", zap.Uint32("ino", ino))
	return ino, nil
}

// allocBlock takes the lowest free block.
func (ext2 *FileSystem) allocBlock() (uint32, error) {
	bm := ext2.BlockBitmap()
	block, err := bm.ScanFirstFree(ext2.sb.FirstDataBlock)
	if err != nil {
		return 0, err
	}
	if err := bm.SetUsed(block, true); err != nil {
		return 0, xerrors.Errorf("failed to mark block %d used: %w", block, err)
	}
	if err := ext2.adjustFreeBlocks(-1); err != nil {
		return 0, err
	}
	ext2.logger.Debug("allocated block", zap.Uint32("block", block))
	return block, nil
}

func (ext2 *FileSystem) freeInode(ino uint32) error {
	if err := ext2.InodeBitmap().SetUsed(ino, false); err != nil {
		return xerrors.Errorf("failed to mark inode %d free: %w", ino, err)
	}
	if err := ext2.adjustFreeInodes(1); err != nil {
		return err
	}
	ext2.logger.Debug("freed inode", zap.Uint32("ino", ino))
	return nil
}

func (ext2 *FileSystem) freeBlocks(blocks []uint32) error {
	bm := ext2.BlockBitmap()
	for _, block := range blocks {
		if err := bm.SetUsed(block, false); err != nil {
			return xerrors.Errorf("failed to mark block %d free: %w", block, err)
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	if err := ext2.adjustFreeBlocks(len(blocks)); err != nil {
		return err
	}
	ext2.logger.Debug("freed blocks", zap.Int("count", len(blocks)))
	return nil
}

// claimInode marks an existing inode used again.
func (ext2 *FileSystem) claimInode(ino uint32) error {
	if err := ext2.InodeBitmap().SetUsed(ino, true); err != nil {
		return xerrors.Errorf("failed to mark inode %d used: %w", ino, err)
	}
	return ext2.adjustFreeInodes(-1)
}

// claimBlocks marks existing blocks used again.
func (ext2 *FileSystem) claimBlocks(blocks []uint32) error {
	bm := ext2.BlockBitmap()
	for _, block := range blocks {
		if err := bm.SetUsed(block, true); err != nil {
			return xerrors.Errorf("failed to mark block %d used: %w", block, err)
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	return ext2.adjustFreeBlocks(-len(blocks))
}
