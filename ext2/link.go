package ext2

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Link creates a hard link dest pointing at the inode of src.
func (ext2 *FileSystem) Link(src, dest []string) error {
	if len(src) == 0 {
		return xerrors.Errorf("root directory: %w", ErrIsADirectory)
	}
	_, srcDir, srcName, err := ext2.resolveParent(src)
	if err != nil {
		return xerrors.Errorf("failed to resolve source: %w", err)
	}
	srcEntry, err := ext2.findEntry(srcDir, srcName)
	if err != nil {
		return err
	}
	if srcEntry == nil {
		return xerrors.Errorf("%q: %w", srcName, ErrNotFound)
	}

	dir, name, err := ext2.linkTarget(dest)
	if err != nil {
		return err
	}

	inode, err := ext2.getInode(srcEntry.Inode)
	if err != nil {
		return err
	}
	if inode.IsDir() {
		return xerrors.Errorf("%q: %w", srcName, ErrIsADirectory)
	}

	if err := ext2.addEntry(dir, name, srcEntry.Inode, srcEntry.FileType); err != nil {
		return err
	}
	inode.LinksCount++
	inode.Ctime = ext2.timestamp()
	if err := ext2.putInode(srcEntry.Inode, inode); err != nil {
		return err
	}
	ext2.logger.Debug("linked", zap.String("name", name), zap.Uint32("ino", srcEntry.Inode),
		zap.Uint16("links", inode.LinksCount))
	return nil
}

// Symlink creates dest as a symbolic link whose target is stored in one data
// block. The target does not have to exist.
func (ext2 *FileSystem) Symlink(target string, dest []string) (uint32, error) {
	if len(target) == 0 {
		return 0, xerrors.Errorf("empty symlink target: %w", ErrNotFound)
	}
	if len(target) > BlockSize {
		return 0, xerrors.Errorf("%d byte symlink target: %w", len(target), ErrNameTooLong)
	}
	dir, name, err := ext2.linkTarget(dest)
	if err != nil {
		return 0, err
	}
	if ext2.sb.FreeBlocksCount == 0 || ext2.sb.FreeInodesCount == 0 {
		return 0, xerrors.Errorf("symlink needs an inode and a block: %w", ErrOutOfSpace)
	}
	slot, err := ext2.reserveEntry(dir, len(name))
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

	buf := make([]byte, BlockSize)
	copy(buf, target)
	if err := ext2.writeBlock(block, buf); err != nil {
		return 0, xerrors.Errorf("failed to write symlink target: %w", err)
	}

	inode := ext2.newInode(S_IFLNK | 0o777)
	inode.Size = uint32(len(target))
	inode.Blocks = sectorsPerBlock
	inode.LinksCount = 1
	inode.Block[0] = block
	if err := ext2.putInode(ino, inode); err != nil {
		return 0, err
	}
	if err := ext2.commit(slot, name, ino, FT_SYMLINK); err != nil {
		return 0, err
	}
	ext2.logger.Debug("created symlink", zap.String("name", name), zap.Uint32("ino", ino), zap.String("target", target))
	return ino, nil
}

// linkTarget resolves the directory for a new entry and checks the name is
// not taken.
func (ext2 *FileSystem) linkTarget(dest []string) (*Inode, string, error) {
	if len(dest) == 0 {
		return nil, "", xerrors.Errorf("root directory: %w", ErrAlreadyExists)
	}
	_, dir, name, err := ext2.resolveParent(dest)
	if err != nil {
		return nil, "", xerrors.Errorf("failed to resolve destination: %w", err)
	}
	if len(name) > MaxNameLen {
		return nil, "", xerrors.Errorf("%d byte name: %w", len(name), ErrNameTooLong)
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
