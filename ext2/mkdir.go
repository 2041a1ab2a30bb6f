package ext2

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Mkdir creates an empty directory. The parent must exist and the name must
// be unused.
func (ext2 *FileSystem) Mkdir(path []string) (uint32, error) {
	if len(path) == 0 {
		return 0, xerrors.Errorf("root directory: %w", ErrAlreadyExists)
	}
	parentIno, parent, name, err := ext2.resolveParent(path)
	if err != nil {
		return 0, err
	}
	entry, err := ext2.findEntry(parent, name)
	if err != nil {
		return 0, err
	}
	if entry != nil {
		return 0, xerrors.Errorf("%q: %w", name, ErrAlreadyExists)
	}
	if ext2.sb.FreeBlocksCount == 0 || ext2.sb.FreeInodesCount == 0 {
		return 0, xerrors.Errorf("directory needs an inode and a block: %w", ErrOutOfSpace)
	}
	slot, err := ext2.reserveEntry(parent, len(name))
	if err != nil {
		return 0, err
	}

	ino, err := ext2.allocInode()
	if err != nil {
		return 0, xerrors.Errorf("failed to allocate inode: %w", err)
	}
	block, err := ext2.allocBlock()
	if err != nil {
		return 0, xerrors.Errorf("failed to allocate block: %w", err)
	}

	buf, err := dirBlock(ino, parentIno)
	if err != nil {
		return 0, err
	}
	if err := ext2.writeBlock(block, buf); err != nil {
		return 0, xerrors.Errorf("failed to write directory block: %w", err)
	}

	inode := ext2.newInode(S_IFDIR | 0o755)
	inode.Size = BlockSize
	inode.Blocks = sectorsPerBlock
	inode.LinksCount = 2
	inode.Block[0] = block
	if err := ext2.putInode(ino, inode); err != nil {
		return 0, err
	}
	if err := ext2.commit(slot, name, ino, FT_DIR); err != nil {
		return 0, err
	}

	parent.LinksCount++
	parent.Mtime = ext2.timestamp()
	if err := ext2.putInode(parentIno, parent); err != nil {
		return 0, err
	}
	if err := ext2.adjustUsedDirs(1); err != nil {
		return 0, err
	}
	ext2.logger.Debug("created directory", zap.String("name", name), zap.Uint32("ino", ino), zap.Uint32("block", block))
	return ino, nil
}

// dirBlock returns the first block of a new directory: "." using 12 bytes
// and ".." using the rest.
func dirBlock(ino, parent uint32) ([]byte, error) {
	buf := make([]byte, BlockSize)
	dot := DirectoryEntry2{Inode: ino, RecLen: uint16(direntSize(1)), NameLen: 1, FileType: FT_DIR, Name: "."}
	dotdot := DirectoryEntry2{Inode: parent, RecLen: uint16(BlockSize - direntSize(1)), NameLen: 2, FileType: FT_DIR, Name: ".."}

	off := 0
	for _, d := range []DirectoryEntry2{dot, dotdot} {
		b, err := d.bytes()
		if err != nil {
			return nil, err
		}
		copy(buf[off:], b)
		off += int(d.RecLen)
	}
	return buf, nil
}
