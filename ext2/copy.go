package ext2

import (
	"encoding/binary"
	"io"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// CopyIn creates a regular file holding size bytes read from r.
//
// If dest names an existing directory the file is created inside it under
// srcName. If dest is empty the root directory is used the same way.
// It returns the new inode number.
func (ext2 *FileSystem) CopyIn(dest []string, r io.Reader, size int64, srcName string) (uint32, error) {
	dir, name, err := ext2.copyTarget(dest, srcName)
	if err != nil {
		return 0, err
	}

	dataBlocks, totalBlocks, err := blocksForSize(size)
	if err != nil {
		return 0, err
	}
	if uint32(totalBlocks) > ext2.sb.FreeBlocksCount {
		return 0, xerrors.Errorf("%d blocks needed, %d free: %w", totalBlocks, ext2.sb.FreeBlocksCount, ErrOutOfSpace)
	}
	if ext2.sb.FreeInodesCount == 0 {
		return 0, xerrors.Errorf("no free inode: %w", ErrOutOfSpace)
	}
	slot, err := ext2.reserveEntry(dir, len(name))
	if err != nil {
		return 0, err
	}

	ino, err := ext2.allocInode()
	if err != nil {
		return 0, xerrors.Errorf("failed to allocate inode: %w", err)
	}

	inode := ext2.newInode(S_IFREG | 0o644)
	inode.Size = uint32(size)
	inode.Blocks = uint32(totalBlocks * sectorsPerBlock)
	inode.LinksCount = 1

	var indirect []byte
	blocks := make([]uint32, dataBlocks)
	for i := range blocks {
		if i == DirectBlocks {
			inode.Block[SingleIndirectSlot], err = ext2.allocBlock()
			if err != nil {
				return 0, xerrors.Errorf("failed to allocate indirect block: %w", err)
			}
			indirect = make([]byte, BlockSize)
		}
		blocks[i], err = ext2.allocBlock()
		if err != nil {
			return 0, xerrors.Errorf("failed to allocate data block %d: %w", i, err)
		}
		if i < DirectBlocks {
			inode.Block[i] = blocks[i]
		} else {
			binary.LittleEndian.PutUint32(indirect[(i-DirectBlocks)*4:], blocks[i])
		}
	}

	remaining := size
	for i, block := range blocks {
		buf := make([]byte, BlockSize)
		n := int64(BlockSize)
		if remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return 0, xerrors.Errorf("failed to read source block %d: %w", i, err)
		}
		if err := ext2.writeBlock(block, buf); err != nil {
			return 0, xerrors.Errorf("failed to write data block %d: %w", i, err)
		}
		remaining -= n
	}
	if indirect != nil {
		if err := ext2.writeBlock(inode.Block[SingleIndirectSlot], indirect); err != nil {
			return 0, xerrors.Errorf("failed to write indirect block: %w", err)
		}
	}

	if err := ext2.putInode(ino, inode); err != nil {
		return 0, err
	}
	if err := ext2.commit(slot, name, ino, FT_REG_FILE); err != nil {
		return 0, err
	}
	ext2.logger.Debug("copied file", zap.String("name", name), zap.Uint32("ino", ino),
		zap.Int64("size", size), zap.Int("blocks", totalBlocks))
	return ino, nil
}

func (ext2 *FileSystem) copyTarget(dest []string, srcName string) (*Inode, string, error) {
	if len(dest) == 0 {
		_, root, err := ext2.resolveDir(nil)
		if err != nil {
			return nil, "", err
		}
		return ext2.copyInto(root, srcName)
	}

	_, dir, name, err := ext2.resolveParent(dest)
	if err != nil {
		return nil, "", err
	}
	entry, err := ext2.findEntry(dir, name)
	if err != nil {
		return nil, "", err
	}
	if entry == nil {
		return dir, name, nil
	}
	inode, err := ext2.getInode(entry.Inode)
	if err != nil {
		return nil, "", err
	}
	if !inode.IsDir() {
		return nil, "", xerrors.Errorf("%q: %w", name, ErrAlreadyExists)
	}
	return ext2.copyInto(inode, srcName)
}

func (ext2 *FileSystem) copyInto(dir *Inode, name string) (*Inode, string, error) {
	if name == "" {
		return nil, "", xerrors.Errorf("no file name: %w", ErrAlreadyExists)
	}
	entry, err := ext2.findEntry(dir, name)
	if err != nil {
		return nil, "", err
	}
	if entry != nil {
		return nil, "", xerrors.Errorf("%q: %w", name, ErrAlreadyExists)
	}
	return dir, name, nil
}

// newInode returns a zeroed record with the given mode and fresh timestamps.
func (ext2 *FileSystem) newInode(mode uint16) *Inode {
	now := ext2.timestamp()
	return &Inode{
		Mode:  mode,
		Atime: now,
		Ctime: now,
		Mtime: now,
	}
}
