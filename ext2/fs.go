package ext2

import (
	"errors"
	"io/fs"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	_ fs.FS        = &FileSystem{}
	_ fs.ReadDirFS = &FileSystem{}
	_ fs.StatFS    = &FileSystem{}

	ErrOpenSymlink = xerrors.New("open symlink does not support")
)

// FileSystem is an ext2 image opened for reading and writing. Counters and
// bitmaps are written through to the device on every change.
type FileSystem struct {
	dev Device

	sb Superblock
	gd GroupDescriptor

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(ext2 *FileSystem) {
		ext2.logger = logger
	}
}

// WithClock sets the time source for inode timestamps.
func WithClock(now func() time.Time) Option {
	return func(ext2 *FileSystem) {
		ext2.now = now
	}
}

// NewFS loads the superblock and group descriptor of dev.
func NewFS(dev Device, opts ...Option) (*FileSystem, error) {
	ext2 := &FileSystem{
		dev:    dev,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ext2)
	}

	buf, err := ext2.readAt(SuperBlockOffset, SuperBlockSize)
	if err != nil {
		return nil, xerrors.Errorf("failed to read super block: %w", err)
	}
	sb, err := parseSuperBlock(buf)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse super block: %w", err)
	}
	ext2.sb = sb

	buf, err = ext2.readAt(GroupDescOffset, GroupDescSize)
	if err != nil {
		return nil, xerrors.Errorf("failed to read group descriptor: %w", err)
	}
	gd, err := parseGroupDescriptor(buf, &sb)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse group descriptor: %w", err)
	}
	ext2.gd = gd

	ext2.logger.Debug("opened filesystem",
		zap.Uint32("blocks", sb.BlocksCount), zap.Uint32("inodes", sb.InodesCount),
		zap.Uint32("free_blocks", sb.FreeBlocksCount), zap.Uint32("free_inodes", sb.FreeInodesCount))
	return ext2, nil
}

// Superblock returns a copy of the in-memory superblock.
func (ext2 *FileSystem) Superblock() Superblock {
	return ext2.sb
}

// GroupDescriptor returns a copy of the in-memory group descriptor.
func (ext2 *FileSystem) GroupDescriptor() GroupDescriptor {
	return ext2.gd
}

// Inode reads inode ino from the inode table.
func (ext2 *FileSystem) Inode(ino uint32) (*Inode, error) {
	return ext2.getInode(ino)
}

func (ext2 *FileSystem) timestamp() uint32 {
	return uint32(ext2.now().Unix())
}

func splitName(name string) ([]string, error) {
	if !fs.ValidPath(name) {
		return nil, fs.ErrInvalid
	}
	if name == "." {
		return nil, nil
	}
	return strings.Split(name, "/"), nil
}

func (ext2 *FileSystem) lookupName(name string) (uint32, *Inode, error) {
	components, err := splitName(name)
	if err != nil {
		return 0, nil, err
	}
	ino, inode, err := ext2.lookup(components)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil, xerrors.Errorf("%s: %w", err, fs.ErrNotExist)
		}
		return 0, nil, err
	}
	return ino, inode, nil
}

func (ext2 *FileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	const op = "read directory"

	dirEntries, err := ext2.readDirEntry(name)
	if err != nil {
		return nil, ext2.wrapError(op, name, err)
	}
	return dirEntries, nil
}

func (ext2 *FileSystem) readDirEntry(name string) ([]fs.DirEntry, error) {
	_, dir, err := ext2.lookupName(name)
	if err != nil {
		return nil, err
	}
	if !dir.IsDir() {
		return nil, xerrors.Errorf("%s is file, directory: %w", name, fs.ErrInvalid)
	}

	fileInfos, err := ext2.listFileInfo(dir)
	if err != nil {
		return nil, xerrors.Errorf("failed to list file infos: %w", err)
	}
	var dirEntries []fs.DirEntry
	for _, fileInfo := range fileInfos {
		dirEntries = append(dirEntries, dirEntry{fileInfo})
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name() < dirEntries[j].Name()
	})
	return dirEntries, nil
}

func (ext2 *FileSystem) listFileInfo(dir *Inode) ([]FileInfo, error) {
	entries, err := ext2.listEntries(dir)
	if err != nil {
		return nil, xerrors.Errorf("failed to get directory entries: %w", err)
	}

	var fileInfos []FileInfo
	for _, entry := range entries {
		// Skip current directory and parent directory
		// infinit loop in walkDir
		if entry.isDot() {
			continue
		}
		inode, err := ext2.getInode(entry.Inode)
		if err != nil {
			return nil, xerrors.Errorf("failed to get inode(%d): %w", entry.Inode, err)
		}
		fileInfos = append(fileInfos,
			FileInfo{
				name:  entry.Name,
				ino:   entry.Inode,
				inode: inode,
				mode:  inode.FileMode(),
			},
		)
	}
	return fileInfos, nil
}

func (ext2 *FileSystem) Stat(name string) (fs.FileInfo, error) {
	const op = "stat"

	ino, inode, err := ext2.lookupName(name)
	if err != nil {
		return nil, ext2.wrapError(op, name, err)
	}
	return FileInfo{
		name:  baseName(name),
		ino:   ino,
		inode: inode,
		mode:  inode.FileMode(),
	}, nil
}

// ReadLink returns the target of a symbolic link.
func (ext2 *FileSystem) ReadLink(name string) (string, error) {
	const op = "readlink"

	_, inode, err := ext2.lookupName(name)
	if err != nil {
		return "", ext2.wrapError(op, name, err)
	}
	if !inode.IsSymlink() {
		return "", ext2.wrapError(op, name, fs.ErrInvalid)
	}
	blockAddresses, err := ext2.GetBlockAddresses(inode)
	if err != nil {
		return "", ext2.wrapError(op, name, err)
	}
	if len(blockAddresses) == 0 || blockAddresses[0] == 0 || inode.GetSize() > BlockSize {
		return "", ext2.wrapError(op, name, xerrors.Errorf("symlink without a target block: %w", ErrUnsupported))
	}
	buf, err := ext2.readBlock(blockAddresses[0])
	if err != nil {
		return "", ext2.wrapError(op, name, err)
	}
	return string(buf[:inode.GetSize()]), nil
}

func (ext2 *FileSystem) Open(name string) (fs.File, error) {
	const op = "open"

	ino, inode, err := ext2.lookupName(name)
	if err != nil {
		return nil, ext2.wrapError(op, name, err)
	}
	if inode.IsSymlink() {
		return nil, ext2.wrapError(op, name, ErrOpenSymlink)
	}

	fi := FileInfo{
		name:  baseName(name),
		ino:   ino,
		inode: inode,
		mode:  inode.FileMode(),
	}
	f, err := ext2.file(fi, name)
	if err != nil {
		return nil, ext2.wrapError(op, name, xerrors.Errorf("failed to get file(inode: %d): %w", ino, err))
	}
	return f, nil
}

func (ext2 *FileSystem) file(fi FileInfo, filePath string) (*File, error) {
	blockAddresses, err := ext2.GetBlockAddresses(fi.inode)
	if err != nil {
		return nil, xerrors.Errorf("failed to get block addresses: %w", err)
	}
	return &File{
		FileInfo: fi,
		fs:       ext2,
		filePath: filePath,
		blocks:   blockAddresses,
	}, nil
}

func (ext2 *FileSystem) wrapError(op, path string, err error) error {
	return &fs.PathError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

func baseName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
