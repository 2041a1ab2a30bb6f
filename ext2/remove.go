package ext2

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Remove unlinks a non-directory entry. When the last link goes the inode is
// stamped with a deletion time and it and its blocks are released. The entry
// and inode bytes are left in place so Restore can find them.
func (ext2 *FileSystem) Remove(path []string) error {
	if len(path) == 0 {
		return xerrors.Errorf("root directory: %w", ErrIsADirectory)
	}
	_, dir, name, err := ext2.resolveParent(path)
	if err != nil {
		return err
	}
	entry, err := ext2.findEntry(dir, name)
	if err != nil {
		return err
	}
	if entry == nil {
		return xerrors.Errorf("%q: %w", name, ErrNotFound)
	}
	ino := entry.Inode
	inode, err := ext2.getInode(ino)
	if err != nil {
		return err
	}
	if inode.IsDir() {
		return xerrors.Errorf("%q: %w", name, ErrIsADirectory)
	}

	if _, err := ext2.removeEntry(dir, name); err != nil {
		return xerrors.Errorf("failed to remove entry %q: %w", name, err)
	}

	if inode.LinksCount > 0 {
		inode.LinksCount--
	}
	// a deletion time on a linked inode would be undone by Check
	if inode.LinksCount > 0 {
		inode.Ctime = ext2.timestamp()
		if err := ext2.putInode(ino, inode); err != nil {
			return err
		}
		ext2.logger.Debug("unlinked", zap.String("name", name), zap.Uint32("ino", ino), zap.Uint16("links", inode.LinksCount))
		return nil
	}

	inode.Dtime = ext2.timestamp()
	if err := ext2.putInode(ino, inode); err != nil {
		return err
	}
	blocks, err := ext2.ReferencedBlocks(inode)
	if err != nil {
		return xerrors.Errorf("failed to get blocks of inode(%d): %w", ino, err)
	}
	if err := ext2.freeBlocks(blocks); err != nil {
		return err
	}
	if err := ext2.freeInode(ino); err != nil {
		return err
	}
	ext2.logger.Debug("deleted", zap.String("name", name), zap.Uint32("ino", ino), zap.Int("blocks", len(blocks)))
	return nil
}
