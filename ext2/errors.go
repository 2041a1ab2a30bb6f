package ext2

import (
	"io/fs"

	"golang.org/x/xerrors"
)

var (
	ErrNotFound            = xerrors.New("no such file or directory")
	ErrAlreadyExists       = xerrors.New("file exists")
	ErrIsADirectory        = xerrors.New("is a directory")
	ErrOutOfSpace          = xerrors.New("no space left on device")
	ErrUnsupportedFileSize = xerrors.New("file needs more than single indirection")
	ErrDirectoryFull       = xerrors.New("no room for a new directory entry")
	ErrNameTooLong         = xerrors.New("file name too long")
	ErrInvalidName         = xerrors.Errorf("invalid file name: %w", fs.ErrInvalid)
	ErrCorrupted           = xerrors.New("corrupted filesystem structure")
	ErrUnsupported         = xerrors.New("unsupported filesystem layout")

	// ErrUnrestorable is returned when a deleted entry was found but its inode or
	// blocks have been reused. It matches ErrNotFound.
	ErrUnrestorable = xerrors.Errorf("deleted entry was overwritten: %w", ErrNotFound)
)
