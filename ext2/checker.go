package ext2

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// FixKind identifies a class of repaired inconsistency.
type FixKind int

const (
	FixFreeCounter FixKind = iota
	FixEntryType
	FixInodeBitmap
	FixDeletionTime
	FixBlockBitmap
)

// Fix is one repair made by Check. Count is how much it adds to the total.
type Fix struct {
	Kind    FixKind
	Inode   uint32
	Count   int
	Message string
}

// CheckReport is the outcome of Check.
type CheckReport struct {
	Fixes []Fix
	Total int
}

// Consistent reports whether nothing had to be repaired.
func (r *CheckReport) Consistent() bool {
	return r.Total == 0
}

// Summary is the final line printed by Check.
func (r *CheckReport) Summary() string {
	if r.Consistent() {
		return "No file system inconsistencies detected!"
	}
	return fmt.Sprintf("%d file system inconsistencies repaired!", r.Total)
}

type checker struct {
	ext2   *FileSystem
	w      io.Writer
	report *CheckReport
}

func (c *checker) fixed(kind FixKind, ino uint32, count int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	c.report.Fixes = append(c.report.Fixes, Fix{Kind: kind, Inode: ino, Count: count, Message: msg})
	c.report.Total += count
	c.ext2.logger.Debug("repaired inconsistency", zap.String("fix", msg), zap.Uint32("ino", ino))
	if _, err := fmt.Fprintln(c.w, msg); err != nil {
		return xerrors.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Check repairs the free counters against the bitmaps and then walks every
// directory reachable from the root, repairing entry types, inode and block
// allocation and deletion times. Each repair and the summary are written to w.
func (ext2 *FileSystem) Check(w io.Writer) (*CheckReport, error) {
	c := &checker{ext2: ext2, w: w, report: &CheckReport{}}

	if err := c.checkCounters(); err != nil {
		return nil, xerrors.Errorf("failed to check free counters: %w", err)
	}
	if err := c.checkTree(); err != nil {
		return nil, xerrors.Errorf("failed to check directory tree: %w", err)
	}

	if _, err := fmt.Fprintln(w, c.report.Summary()); err != nil {
		return nil, xerrors.Errorf("failed to write report: %w", err)
	}
	return c.report, nil
}

func offBy(counter, actual uint32) int {
	if counter > actual {
		return int(counter - actual)
	}
	return int(actual - counter)
}

func (c *checker) checkCounters() error {
	freeInodes, err := c.ext2.InodeBitmap().CountFree()
	if err != nil {
		return err
	}
	freeBlocks, err := c.ext2.BlockBitmap().CountFree()
	if err != nil {
		return err
	}

	sb, gd := &c.ext2.sb, &c.ext2.gd
	if d := offBy(sb.FreeInodesCount, freeInodes); d != 0 {
		sb.FreeInodesCount = freeInodes
		if err := c.fixed(FixFreeCounter, 0, d, "Fixed: superblock's free inodes counter was off by %d compared to the bitmap", d); err != nil {
			return err
		}
	}
	if d := offBy(uint32(gd.FreeInodesCount), freeInodes); d != 0 {
		gd.FreeInodesCount = uint16(freeInodes)
		if err := c.fixed(FixFreeCounter, 0, d, "Fixed: block group's free inodes counter was off by %d compared to the bitmap", d); err != nil {
			return err
		}
	}
	if d := offBy(sb.FreeBlocksCount, freeBlocks); d != 0 {
		sb.FreeBlocksCount = freeBlocks
		if err := c.fixed(FixFreeCounter, 0, d, "Fixed: superblock's free blocks counter was off by %d compared to the bitmap", d); err != nil {
			return err
		}
	}
	if d := offBy(uint32(gd.FreeBlocksCount), freeBlocks); d != 0 {
		gd.FreeBlocksCount = uint16(freeBlocks)
		if err := c.fixed(FixFreeCounter, 0, d, "Fixed: block group's free blocks counter was off by %d compared to the bitmap", d); err != nil {
			return err
		}
	}
	return c.ext2.flushCounters()
}

// checkTree walks directories with an explicit stack. A directory is
// visited once even if the tree has cycles.
func (c *checker) checkTree() error {
	visited := map[uint32]bool{RootInode: true}
	stack := []uint32{RootInode}

	for len(stack) > 0 {
		ino := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dir, err := c.ext2.getInode(ino)
		if err != nil {
			return xerrors.Errorf("failed to get directory inode(%d): %w", ino, err)
		}
		entries, err := c.ext2.listEntries(dir)
		if err != nil {
			c.ext2.logger.Warn("skipping unreadable directory", zap.Uint32("ino", ino), zap.Error(err))
			continue
		}

		var subdirs []uint32
		for i := range entries {
			entry := &entries[i]
			if entry.isDot() {
				continue
			}
			if !c.ext2.InodeBitmap().Contains(entry.Inode) {
				c.ext2.logger.Warn("skipping entry with invalid inode",
					zap.String("name", entry.Name), zap.Uint32("ino", entry.Inode))
				continue
			}
			inode, err := c.checkEntry(entry)
			if err != nil {
				return xerrors.Errorf("failed to check %q (inode %d): %w", entry.Name, entry.Inode, err)
			}
			if inode.IsDir() && !visited[entry.Inode] {
				visited[entry.Inode] = true
				subdirs = append(subdirs, entry.Inode)
			}
		}
		// entry order
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

func (c *checker) checkEntry(entry *Entry) (*Inode, error) {
	ext2 := c.ext2
	ino := entry.Inode
	inode, err := ext2.getInode(ino)
	if err != nil {
		return nil, err
	}

	if want := inode.FileType(); want != FT_UNKNOWN && entry.FileType != want {
		buf, err := ext2.readBlock(entry.Block)
		if err != nil {
			return nil, err
		}
		putFileType(buf, entry.Offset, want)
		if err := ext2.writeBlock(entry.Block, buf); err != nil {
			return nil, err
		}
		entry.FileType = want
		if err := c.fixed(FixEntryType, ino, 1, "Fixed: Entry type vs inode mismatch: inode [%d]", ino); err != nil {
			return nil, err
		}
	}

	used, err := ext2.InodeBitmap().IsUsed(ino)
	if err != nil {
		return nil, err
	}
	if !used {
		if err := ext2.claimInode(ino); err != nil {
			return nil, err
		}
		if inode.IsDir() {
			if err := ext2.adjustUsedDirs(1); err != nil {
				return nil, err
			}
		}
		if err := c.fixed(FixInodeBitmap, ino, 1, "Fixed: inode [%d] not marked as in-use", ino); err != nil {
			return nil, err
		}
	}

	if inode.Dtime != 0 {
		inode.Dtime = 0
		if err := ext2.putInode(ino, inode); err != nil {
			return nil, err
		}
		if err := c.fixed(FixDeletionTime, ino, 1, "Fixed: valid inode marked for deletion: [%d]", ino); err != nil {
			return nil, err
		}
	}

	blocks, err := ext2.ReferencedBlocks(inode)
	if err != nil {
		ext2.logger.Warn("skipping blocks of inode", zap.Uint32("ino", ino), zap.Error(err))
		return inode, nil
	}
	bm := ext2.BlockBitmap()
	var missing []uint32
	seen := make(map[uint32]bool)
	for _, block := range blocks {
		if seen[block] {
			continue
		}
		seen[block] = true
		if !bm.Contains(block) {
			ext2.logger.Warn("inode references block outside the bitmap", zap.Uint32("ino", ino), zap.Uint32("block", block))
			continue
		}
		used, err := bm.IsUsed(block)
		if err != nil {
			return nil, err
		}
		if !used {
			missing = append(missing, block)
		}
	}
	if len(missing) > 0 {
		if err := ext2.claimBlocks(missing); err != nil {
			return nil, err
		}
		if err := c.fixed(FixBlockBitmap, ino, len(missing), "Fixed: %d in-use data blocks not marked in data bitmap for inode: [%d]", len(missing), ino); err != nil {
			return nil, err
		}
	}
	return inode, nil
}
