package ext2

import (
	"time"

	"github.com/diskfs/go-diskfs/util/bitmap"
	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

const (
	MinFormatBlocks = 16
	MaxFormatBlocks = bitsPerBitmapBlock + 1
	MinFormatInodes = 16
	MaxFormatInodes = bitsPerBitmapBlock
)

// FormatOptions describes a new image.
type FormatOptions struct {
	Blocks     uint32
	Inodes     uint32
	VolumeName string
	Now        time.Time
}

// Layout is where Format places the metadata of an image.
type Layout struct {
	BlockBitmap    uint32
	InodeBitmap    uint32
	InodeTable     uint32
	InodeTableSize uint32
	RootDir        uint32
	LostFound      uint32
}

func (opts FormatOptions) layout() (Layout, error) {
	if opts.Blocks < MinFormatBlocks || opts.Blocks > MaxFormatBlocks {
		return Layout{}, xerrors.Errorf("block count %d outside [%d, %d]: %w", opts.Blocks, MinFormatBlocks, MaxFormatBlocks, ErrUnsupported)
	}
	if opts.Inodes < MinFormatInodes || opts.Inodes > MaxFormatInodes || opts.Inodes%8 != 0 {
		return Layout{}, xerrors.Errorf("inode count %d must be a multiple of 8 in [%d, %d]: %w", opts.Inodes, MinFormatInodes, MaxFormatInodes, ErrUnsupported)
	}

	l := Layout{
		BlockBitmap:    3,
		InodeBitmap:    4,
		InodeTable:     5,
		InodeTableSize: uint32(divWithRoundUp(int64(opts.Inodes)*InodeRecordSize, BlockSize)),
	}
	l.RootDir = l.InodeTable + l.InodeTableSize
	l.LostFound = l.RootDir + 1
	if l.LostFound >= opts.Blocks {
		return Layout{}, xerrors.Errorf("%d blocks cannot hold %d inodes: %w", opts.Blocks, opts.Inodes, ErrOutOfSpace)
	}
	return l, nil
}

// Format writes an empty filesystem with a root directory and lost+found to
// dev, which must be at least opts.Blocks blocks long.
func Format(dev Device, opts FormatOptions) error {
	l, err := opts.layout()
	if err != nil {
		return err
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	now := uint32(opts.Now.Unix())

	zero := make([]byte, BlockSize)
	for block := uint32(0); block <= l.LostFound; block++ {
		if _, err := dev.WriteAt(zero, int64(block)*BlockSize); err != nil {
			return xerrors.Errorf("failed to clear block %d: %w", block, err)
		}
	}

	blocksInGroup := opts.Blocks - 1
	usedBlocks := l.LostFound
	usedInodes := uint32(LostFoundInode)

	sb := Superblock{
		InodesCount:     opts.Inodes,
		BlocksCount:     opts.Blocks,
		FreeBlocksCount: blocksInGroup - usedBlocks,
		FreeInodesCount: opts.Inodes - usedInodes,
		FirstDataBlock:  1,
		BlocksPerGroup:  bitsPerBitmapBlock,
		FragsPerGroup:   bitsPerBitmapBlock,
		InodesPerGroup:  opts.Inodes,
		Wtime:           now,
		MaxMntCount:     0xFFFF,
		Magic:           Magic,
		State:           1,
		Errors:          1,
		Lastcheck:       now,
		RevLevel:        1,
		FirstIno:        GoodOldFirstIno,
		InodeSize:       InodeRecordSize,
		FeatureIncompat: FEATURE_INCOMPAT_FILETYPE,
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return xerrors.Errorf("failed to generate uuid: %w", err)
	}
	copy(sb.UUID[:], id[:])
	copy(sb.VolumeName[:], opts.VolumeName)

	gd := GroupDescriptor{
		BlockBitmap:     l.BlockBitmap,
		InodeBitmap:     l.InodeBitmap,
		InodeTable:      l.InodeTable,
		FreeBlocksCount: uint16(sb.FreeBlocksCount),
		FreeInodesCount: uint16(sb.FreeInodesCount),
		UsedDirsCount:   2,
	}

	blockBitmap := bitmap.NewBits(bitsPerBitmapBlock)
	for bit := 0; bit < bitsPerBitmapBlock; bit++ {
		// metadata, root and lost+found, then padding past the last block
		if bit < int(usedBlocks) || bit >= int(blocksInGroup) {
			if err := blockBitmap.Set(bit); err != nil {
				return xerrors.Errorf("failed to set block bit %d: %w", bit, err)
			}
		}
	}
	inodeBitmap := bitmap.NewBits(bitsPerBitmapBlock)
	for bit := 0; bit < bitsPerBitmapBlock; bit++ {
		if bit < int(usedInodes) || bit >= int(opts.Inodes) {
			if err := inodeBitmap.Set(bit); err != nil {
				return xerrors.Errorf("failed to set inode bit %d: %w", bit, err)
			}
		}
	}

	sbBytes, err := sb.bytes()
	if err != nil {
		return err
	}
	gdBytes, err := gd.bytes()
	if err != nil {
		return err
	}
	rootBlock, err := dirBlock(RootInode, RootInode)
	if err != nil {
		return err
	}
	lostFoundBlock, err := dirBlock(LostFoundInode, RootInode)
	if err != nil {
		return err
	}
	if err := appendFormatEntry(rootBlock, "lost+found", LostFoundInode); err != nil {
		return err
	}

	root := Inode{Mode: S_IFDIR | 0o755, Size: BlockSize, Atime: now, Ctime: now, Mtime: now, LinksCount: 3, Blocks: sectorsPerBlock}
	root.Block[0] = l.RootDir
	lostFound := Inode{Mode: S_IFDIR | 0o700, Size: BlockSize, Atime: now, Ctime: now, Mtime: now, LinksCount: 2, Blocks: sectorsPerBlock}
	lostFound.Block[0] = l.LostFound
	rootBytes, err := root.bytes()
	if err != nil {
		return err
	}
	lostFoundBytes, err := lostFound.bytes()
	if err != nil {
		return err
	}
	inodeTable := int64(l.InodeTable) * BlockSize

	writes := []struct {
		b   []byte
		off int64
	}{
		{sbBytes, SuperBlockOffset},
		{gdBytes, GroupDescOffset},
		{blockBitmap.ToBytes(), int64(l.BlockBitmap) * BlockSize},
		{inodeBitmap.ToBytes(), int64(l.InodeBitmap) * BlockSize},
		{rootBytes, inodeTable + (RootInode-1)*InodeRecordSize},
		{lostFoundBytes, inodeTable + (LostFoundInode-1)*InodeRecordSize},
		{rootBlock, int64(l.RootDir) * BlockSize},
		{lostFoundBlock, int64(l.LostFound) * BlockSize},
	}
	for _, w := range writes {
		if _, err := dev.WriteAt(w.b, w.off); err != nil {
			return xerrors.Errorf("failed to write at %d: %w", w.off, err)
		}
	}
	return nil
}

// appendFormatEntry adds an entry after ".." of a fresh directory block.
func appendFormatEntry(buf []byte, name string, ino uint32) error {
	dotdot := direntSize(1)
	putRecLen(buf, dotdot, direntSize(2))
	d := DirectoryEntry2{
		Inode:    ino,
		RecLen:   uint16(BlockSize - dotdot - direntSize(2)),
		NameLen:  uint8(len(name)),
		FileType: FT_DIR,
		Name:     name,
	}
	b, err := d.bytes()
	if err != nil {
		return err
	}
	copy(buf[dotdot+direntSize(2):], b)
	return nil
}
