package ext2

import (
	"golang.org/x/xerrors"
)

func (ext2 *FileSystem) readAt(off int64, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := ext2.dev.ReadAt(buf, off)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %d bytes at %d: %w", size, off, err)
	}
	if n != size {
		return nil, xerrors.Errorf("read %d bytes instead of %d at %d: %w", n, size, off, ErrCorrupted)
	}
	return buf, nil
}

func (ext2 *FileSystem) writeAt(b []byte, off int64) error {
	n, err := ext2.dev.WriteAt(b, off)
	if err != nil {
		return xerrors.Errorf("failed to write %d bytes at %d: %w", len(b), off, err)
	}
	if n != len(b) {
		return xerrors.Errorf("wrote %d bytes instead of %d at %d", n, len(b), off)
	}
	return nil
}

func (ext2 *FileSystem) checkBlock(n uint32) error {
	if n < ext2.sb.FirstDataBlock || n >= ext2.sb.BlocksCount {
		return xerrors.Errorf("block %d out of range [%d, %d): %w", n, ext2.sb.FirstDataBlock, ext2.sb.BlocksCount, ErrCorrupted)
	}
	return nil
}

func (ext2 *FileSystem) readBlock(n uint32) ([]byte, error) {
	if err := ext2.checkBlock(n); err != nil {
		return nil, err
	}
	return ext2.readAt(int64(n)*BlockSize, BlockSize)
}

func (ext2 *FileSystem) writeBlock(n uint32, b []byte) error {
	if err := ext2.checkBlock(n); err != nil {
		return err
	}
	if len(b) != BlockSize {
		return xerrors.Errorf("block %d write of %d bytes", n, len(b))
	}
	return ext2.writeAt(b, int64(n)*BlockSize)
}

func (ext2 *FileSystem) inodeOffset(ino uint32) (int64, error) {
	if ino == 0 || ino > ext2.sb.InodesCount {
		return 0, xerrors.Errorf("inode %d out of range [1, %d]: %w", ino, ext2.sb.InodesCount, ErrCorrupted)
	}
	return int64(ext2.gd.GetInodeTableLoc())*BlockSize + int64(ino-1)*ext2.sb.GetInodeSize(), nil
}

func (ext2 *FileSystem) getInode(ino uint32) (*Inode, error) {
	off, err := ext2.inodeOffset(ino)
	if err != nil {
		return nil, err
	}
	buf, err := ext2.readAt(off, InodeRecordSize)
	if err != nil {
		return nil, xerrors.Errorf("failed to read inode(%d): %w", ino, err)
	}
	inode, err := parseInode(buf)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse inode(%d): %w", ino, err)
	}
	return inode, nil
}

func (ext2 *FileSystem) putInode(ino uint32, inode *Inode) error {
	off, err := ext2.inodeOffset(ino)
	if err != nil {
		return err
	}
	buf, err := inode.bytes()
	if err != nil {
		return err
	}
	if err := ext2.writeAt(buf, off); err != nil {
		return xerrors.Errorf("failed to write inode(%d): %w", ino, err)
	}
	return nil
}

func (ext2 *FileSystem) flushSuperblock() error {
	buf, err := ext2.sb.bytes()
	if err != nil {
		return err
	}
	if err := ext2.writeAt(buf, SuperBlockOffset); err != nil {
		return xerrors.Errorf("failed to write super block: %w", err)
	}
	return nil
}

func (ext2 *FileSystem) flushGroupDescriptor() error {
	buf, err := ext2.gd.bytes()
	if err != nil {
		return err
	}
	if err := ext2.writeAt(buf, GroupDescOffset); err != nil {
		return xerrors.Errorf("failed to write group descriptor: %w", err)
	}
	return nil
}

func (ext2 *FileSystem) flushCounters() error {
	if err := ext2.flushSuperblock(); err != nil {
		return err
	}
	return ext2.flushGroupDescriptor()
}

func (ext2 *FileSystem) adjustFreeInodes(delta int) error {
	ext2.sb.FreeInodesCount = uint32(int64(ext2.sb.FreeInodesCount) + int64(delta))
	ext2.gd.FreeInodesCount = uint16(int64(ext2.gd.FreeInodesCount) + int64(delta))
	return ext2.flushCounters()
}

func (ext2 *FileSystem) adjustFreeBlocks(delta int) error {
	ext2.sb.FreeBlocksCount = uint32(int64(ext2.sb.FreeBlocksCount) + int64(delta))
	ext2.gd.FreeBlocksCount = uint16(int64(ext2.gd.FreeBlocksCount) + int64(delta))
	return ext2.flushCounters()
}

func (ext2 *FileSystem) adjustUsedDirs(delta int) error {
	ext2.gd.UsedDirsCount = uint16(int64(ext2.gd.UsedDirsCount) + int64(delta))
	return ext2.flushGroupDescriptor()
}
