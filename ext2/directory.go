package ext2

import (
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Entry is a directory entry together with where it is stored.
type Entry struct {
	DirectoryEntry2
	Block  uint32
	Offset int
}

// liveBound is how many bytes of the index-th directory block are inside the
// directory size.
func liveBound(dir *Inode, index int) int {
	rest := dir.GetSize() - int64(index)*BlockSize
	if rest > BlockSize {
		return BlockSize
	}
	if rest < 0 {
		return 0
	}
	return int(rest)
}

// walkBlock visits the chain of entries of one block starting at offset 0
// while the offset is below bound.
func walkBlock(buf []byte, bound int, fn func(off int, d DirectoryEntry2) (bool, error)) error {
	for off := 0; off < bound; {
		d, err := parseDirectoryEntry(buf, off, BlockSize)
		if err != nil {
			return err
		}
		stop, err := fn(off, d)
		if err != nil || stop {
			return err
		}
		off += int(d.RecLen)
	}
	return nil
}

// walkDirectory visits the live chain of every directory block in order.
func (ext2 *FileSystem) walkDirectory(dir *Inode, fn func(addr uint32, buf []byte, off int, d DirectoryEntry2) (bool, error)) error {
	blockAddresses, err := ext2.GetBlockAddresses(dir)
	if err != nil {
		return xerrors.Errorf("failed to get directory blocks: %w", err)
	}
	for i, addr := range blockAddresses {
		bound := liveBound(dir, i)
		if addr == 0 || bound == 0 {
			continue
		}
		buf, err := ext2.readBlock(addr)
		if err != nil {
			return xerrors.Errorf("failed to read directory block: %w", err)
		}
		stopped := false
		err = walkBlock(buf, bound, func(off int, d DirectoryEntry2) (bool, error) {
			stop, err := fn(addr, buf, off, d)
			stopped = stop
			return stop, err
		})
		if err != nil {
			return xerrors.Errorf("failed to walk directory block(%d): %w", addr, err)
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// listEntries returns every live entry, "." and ".." included.
func (ext2 *FileSystem) listEntries(dir *Inode) ([]Entry, error) {
	var entries []Entry
	err := ext2.walkDirectory(dir, func(addr uint32, _ []byte, off int, d DirectoryEntry2) (bool, error) {
		if d.Inode != 0 {
			entries = append(entries, Entry{DirectoryEntry2: d, Block: addr, Offset: off})
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// findEntry returns the first live entry called name, or nil.
func (ext2 *FileSystem) findEntry(dir *Inode, name string) (*Entry, error) {
	var found *Entry
	err := ext2.walkDirectory(dir, func(addr uint32, _ []byte, off int, d DirectoryEntry2) (bool, error) {
		if d.Inode != 0 && d.Name == name {
			found = &Entry{DirectoryEntry2: d, Block: addr, Offset: off}
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// entrySlot is room reserved for a new entry in a directory block.
type entrySlot struct {
	block    uint32
	buf      []byte
	lastOff  int
	lastSize int
	off      int
}

// reserveEntry makes room for a name of nameLen bytes after the last entry of
// the last allocated directory block. The directory is never grown.
func (ext2 *FileSystem) reserveEntry(dir *Inode, nameLen int) (*entrySlot, error) {
	if nameLen == 0 {
		return nil, xerrors.Errorf("empty name: %w", ErrInvalidName)
	}
	if nameLen > MaxNameLen {
		return nil, xerrors.Errorf("%d byte name: %w", nameLen, ErrNameTooLong)
	}
	need := direntSize(nameLen)

	blockAddresses, err := ext2.GetBlockAddresses(dir)
	if err != nil {
		return nil, xerrors.Errorf("failed to get directory blocks: %w", err)
	}
	var addr uint32
	for i := len(blockAddresses) - 1; i >= 0; i-- {
		if blockAddresses[i] != 0 {
			addr = blockAddresses[i]
			break
		}
	}
	if addr == 0 {
		return nil, xerrors.Errorf("directory has no blocks: %w", ErrDirectoryFull)
	}

	buf, err := ext2.readBlock(addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to read directory block: %w", err)
	}
	lastOff := -1
	var last DirectoryEntry2
	err = walkBlock(buf, BlockSize, func(off int, d DirectoryEntry2) (bool, error) {
		lastOff, last = off, d
		return false, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to walk directory block(%d): %w", addr, err)
	}
	// an empty record keeps its minimal size so its name bytes survive
	if lastOff < 0 || last.slack() < need {
		return nil, xerrors.Errorf("%d bytes needed in block(%d): %w", need, addr, ErrDirectoryFull)
	}
	return &entrySlot{
		block:    addr,
		buf:      buf,
		lastOff:  lastOff,
		lastSize: last.minSize(),
		off:      lastOff + last.minSize(),
	}, nil
}

// commit writes the entry into the reserved slot. The new record runs to the
// end of the block.
func (ext2 *FileSystem) commit(slot *entrySlot, name string, ino uint32, fileType uint8) error {
	putRecLen(slot.buf, slot.lastOff, slot.lastSize)
	d := DirectoryEntry2{
		Inode:    ino,
		RecLen:   uint16(BlockSize - slot.off),
		NameLen:  uint8(len(name)),
		FileType: fileType,
		Name:     name,
	}
	b, err := d.bytes()
	if err != nil {
		return err
	}
	copy(slot.buf[slot.off:], b)
	if err := ext2.writeBlock(slot.block, slot.buf); err != nil {
		return xerrors.Errorf("failed to write directory block: %w", err)
	}
	ext2.logger.Debug("added directory entry",
		zap.String("name", name), zap.Uint32("ino", ino),
		zap.Uint32("block", slot.block), zap.Int("offset", slot.off))
	return nil
}

// addEntry appends name -> ino to dir.
func (ext2 *FileSystem) addEntry(dir *Inode, name string, ino uint32, fileType uint8) error {
	slot, err := ext2.reserveEntry(dir, len(name))
	if err != nil {
		return err
	}
	return ext2.commit(slot, name, ino, fileType)
}

// removeEntry unlinks name from dir by folding its record into the
// predecessor. The record bytes stay on disk. Returns nil if name is absent.
func (ext2 *FileSystem) removeEntry(dir *Inode, name string) (*Entry, error) {
	var removed *Entry
	var prevAddr uint32
	prevOff, prevRec := -1, 0
	err := ext2.walkDirectory(dir, func(addr uint32, buf []byte, off int, d DirectoryEntry2) (bool, error) {
		if addr != prevAddr {
			prevAddr, prevOff = addr, -1
		}
		if d.Inode == 0 || d.Name != name {
			prevOff, prevRec = off, int(d.RecLen)
			return false, nil
		}

		if prevOff < 0 {
			putEntryInode(buf, off, 0)
		} else {
			putRecLen(buf, prevOff, prevRec+int(d.RecLen))
		}
		if err := ext2.writeBlock(addr, buf); err != nil {
			return true, xerrors.Errorf("failed to write directory block: %w", err)
		}
		removed = &Entry{DirectoryEntry2: d, Block: addr, Offset: off}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if removed != nil {
		ext2.logger.Debug("removed directory entry",
			zap.String("name", name), zap.Uint32("ino", removed.Inode),
			zap.Uint32("block", removed.Block), zap.Int("offset", removed.Offset))
	}
	return removed, nil
}

// hiddenEntry is a removed record found in the slack of a visible entry.
type hiddenEntry struct {
	Entry
	buf []byte
	// visible predecessor whose rec_len covers the record
	prevOff int
	prevRec int
}

type slackRegion struct {
	start, end int
}

// findHidden searches the slack of every visible entry, and recursively the
// slack of every hidden entry found there, for a record called name.
func (ext2 *FileSystem) findHidden(dir *Inode, name string) (*hiddenEntry, error) {
	var found *hiddenEntry
	err := ext2.walkDirectory(dir, func(addr uint32, buf []byte, off int, v DirectoryEntry2) (bool, error) {
		if v.slack() < direntHeaderSize {
			return false, nil
		}

		stack := []slackRegion{{start: off + v.minSize(), end: off + int(v.RecLen)}}
		for len(stack) > 0 {
			r := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for pos := r.start; pos+direntHeaderSize <= r.end; {
				h, err := unpackDirectoryEntry(buf, pos)
				if err != nil {
					break
				}
				extent := pos + int(h.RecLen)
				if extent > r.end {
					extent = r.end
				}
				if h.Inode != 0 && h.Inode <= ext2.sb.InodesCount && h.Name == name {
					found = &hiddenEntry{
						Entry:   Entry{DirectoryEntry2: h, Block: addr, Offset: pos},
						buf:     buf,
						prevOff: off,
						prevRec: int(v.RecLen),
					}
					return true, nil
				}
				if extent-(pos+h.minSize()) >= direntHeaderSize {
					stack = append(stack, slackRegion{start: pos + h.minSize(), end: extent})
				}
				pos += int(h.RecLen)
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
