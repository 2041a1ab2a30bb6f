package ext2

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Restore brings back a removed file whose entry still sits in the slack of
// a live entry, provided neither its inode nor any of its blocks were reused.
func (ext2 *FileSystem) Restore(path []string) error {
	if len(path) == 0 {
		return xerrors.Errorf("root directory: %w", ErrIsADirectory)
	}
	_, dir, name, err := ext2.resolveParent(path)
	if err != nil {
		return err
	}
	live, err := ext2.findEntry(dir, name)
	if err != nil {
		return err
	}
	if live != nil {
		return xerrors.Errorf("%q: %w", name, ErrAlreadyExists)
	}

	hidden, err := ext2.findHidden(dir, name)
	if err != nil {
		return xerrors.Errorf("failed to scan for removed entries: %w", err)
	}
	if hidden == nil {
		return xerrors.Errorf("%q: %w", name, ErrNotFound)
	}
	ino := hidden.Inode

	used, err := ext2.InodeBitmap().IsUsed(ino)
	if err != nil {
		return err
	}
	if used {
		return xerrors.Errorf("inode %d of %q is in use: %w", ino, name, ErrUnrestorable)
	}
	inode, err := ext2.getInode(ino)
	if err != nil {
		return err
	}
	if inode.IsDir() {
		return xerrors.Errorf("%q: %w", name, ErrIsADirectory)
	}

	blocks, err := ext2.ReferencedBlocks(inode)
	if err != nil {
		return xerrors.Errorf("failed to get blocks of inode(%d): %v: %w", ino, err, ErrUnrestorable)
	}
	bm := ext2.BlockBitmap()
	for _, block := range blocks {
		if !bm.Contains(block) {
			return xerrors.Errorf("block %d of %q is out of range: %w", block, name, ErrUnrestorable)
		}
		used, err := bm.IsUsed(block)
		if err != nil {
			return err
		}
		if used {
			return xerrors.Errorf("block %d of %q is in use: %w", block, name, ErrUnrestorable)
		}
	}

	// The predecessor now ends where the hidden record starts and the hidden
	// record must not reach past the predecessor's old extent.
	buf := hidden.buf
	putRecLen(buf, hidden.prevOff, hidden.Offset-hidden.prevOff)
	if limit := hidden.prevOff + hidden.prevRec - hidden.Offset; int(hidden.RecLen) > limit {
		putRecLen(buf, hidden.Offset, limit)
	}
	if err := ext2.writeBlock(hidden.Block, buf); err != nil {
		return xerrors.Errorf("failed to write directory block: %w", err)
	}

	if err := ext2.claimInode(ino); err != nil {
		return err
	}
	if err := ext2.claimBlocks(blocks); err != nil {
		return err
	}
	inode.Dtime = 0
	inode.LinksCount++
	if err := ext2.putInode(ino, inode); err != nil {
		return err
	}
	ext2.logger.Debug("restored", zap.String("name", name), zap.Uint32("ino", ino), zap.Int("blocks", len(blocks)))
	return nil
}
