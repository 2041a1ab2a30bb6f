package ext2

import (
	"golang.org/x/xerrors"
)

// resolveDir walks components from the root directory. Every component must
// name a directory.
func (ext2 *FileSystem) resolveDir(components []string) (uint32, *Inode, error) {
	ino := uint32(RootInode)
	dir, err := ext2.getInode(ino)
	if err != nil {
		return 0, nil, xerrors.Errorf("failed to get root inode: %w", err)
	}

	for _, name := range components {
		entry, err := ext2.findEntry(dir, name)
		if err != nil {
			return 0, nil, xerrors.Errorf("failed to look up %q: %w", name, err)
		}
		if entry == nil {
			return 0, nil, xerrors.Errorf("%q: %w", name, ErrNotFound)
		}
		next, err := ext2.getInode(entry.Inode)
		if err != nil {
			return 0, nil, xerrors.Errorf("failed to get inode of %q: %w", name, err)
		}
		if !next.IsDir() {
			return 0, nil, xerrors.Errorf("%q is not a directory: %w", name, ErrNotFound)
		}
		ino, dir = entry.Inode, next
	}
	return ino, dir, nil
}

// resolveParent resolves every component but the last and returns the
// directory that should hold the last one.
func (ext2 *FileSystem) resolveParent(components []string) (uint32, *Inode, string, error) {
	if len(components) == 0 {
		return 0, nil, "", xerrors.New("empty path")
	}
	ino, dir, err := ext2.resolveDir(components[:len(components)-1])
	if err != nil {
		return 0, nil, "", err
	}
	return ino, dir, components[len(components)-1], nil
}

// lookup resolves a full path to its inode. An empty path is the root.
func (ext2 *FileSystem) lookup(components []string) (uint32, *Inode, error) {
	if len(components) == 0 {
		return ext2.resolveDir(nil)
	}
	_, dir, name, err := ext2.resolveParent(components)
	if err != nil {
		return 0, nil, err
	}
	entry, err := ext2.findEntry(dir, name)
	if err != nil {
		return 0, nil, xerrors.Errorf("failed to look up %q: %w", name, err)
	}
	if entry == nil {
		return 0, nil, xerrors.Errorf("%q: %w", name, ErrNotFound)
	}
	inode, err := ext2.getInode(entry.Inode)
	if err != nil {
		return 0, nil, xerrors.Errorf("failed to get inode of %q: %w", name, err)
	}
	return entry.Inode, inode, nil
}
