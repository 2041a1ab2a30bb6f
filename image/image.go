// Package image maps ext2 image files into memory.
package image

import (
	"os"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// ErrLocked is returned when another process holds the image lock.
var ErrLocked = xerrors.New("image is locked by another process")

// Image is an image file mapped shared and writable. Writes land in the
// mapping and reach the file on Sync or Close.
type Image struct {
	path string
	f    *os.File
	lock *flock.Flock
	data []byte
	sync bool
}

type options struct {
	lock bool
	sync bool
}

// Option configures Open.
type Option func(*options)

// WithLock takes an exclusive advisory lock on the image for the lifetime of
// the Image.
func WithLock(lock bool) Option {
	return func(o *options) {
		o.lock = lock
	}
}

// WithSync controls whether Close msyncs the mapping before unmapping it.
func WithSync(sync bool) Option {
	return func(o *options) {
		o.sync = sync
	}
}

// Open maps the image file at path.
func Open(path string, opts ...Option) (*Image, error) {
	o := options{lock: true, sync: true}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s: %w", path, err)
	}
	img := &Image{path: path, f: f, sync: o.sync}

	// flock creates missing files, so the image is opened first
	if o.lock {
		img.lock = flock.New(path)
		locked, err := img.lock.TryLock()
		if err != nil {
			img.lock = nil
			return nil, multierr.Append(xerrors.Errorf("failed to lock %s: %w", path, err), img.closeFile())
		}
		if !locked {
			img.lock = nil
			return nil, multierr.Append(xerrors.Errorf("%s: %w", path, ErrLocked), img.closeFile())
		}
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, multierr.Append(xerrors.Errorf("failed to stat %s: %w", path, err), img.closeFile())
	}
	if fi.Size() == 0 {
		return nil, multierr.Append(xerrors.Errorf("%s is empty", path), img.closeFile())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, multierr.Append(xerrors.Errorf("failed to mmap %s: %w", path, err), img.closeFile())
	}
	img.data = data
	return img, nil
}

// Create makes a zero filled image file of size bytes and maps it.
func Create(path string, size int64, opts ...Option) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("failed to create %s: %w", path, err)
	}
	err = f.Truncate(size)
	err = multierr.Append(err, f.Close())
	if err != nil {
		return nil, xerrors.Errorf("failed to size %s: %w", path, err)
	}
	return Open(path, opts...)
}

// Path is the file the image was opened from.
func (img *Image) Path() string {
	return img.path
}

// Size is the length of the mapping.
func (img *Image) Size() int64 {
	return int64(len(img.data))
}

func (img *Image) ReadAt(p []byte, off int64) (int, error) {
	return readAt(img.data, p, off)
}

func (img *Image) WriteAt(p []byte, off int64) (int, error) {
	return writeAt(img.data, p, off)
}

// Sync flushes the mapping to the file.
func (img *Image) Sync() error {
	if img.data == nil {
		return nil
	}
	if err := unix.Msync(img.data, unix.MS_SYNC); err != nil {
		return xerrors.Errorf("failed to msync %s: %w", img.path, err)
	}
	return nil
}

// Close flushes and unmaps the image and releases the lock.
func (img *Image) Close() error {
	var err error
	if img.data != nil {
		if img.sync {
			err = multierr.Append(err, img.Sync())
		}
		if uerr := unix.Munmap(img.data); uerr != nil {
			err = multierr.Append(err, xerrors.Errorf("failed to munmap %s: %w", img.path, uerr))
		}
		img.data = nil
	}
	return multierr.Append(err, img.closeFile())
}

func (img *Image) closeFile() error {
	var err error
	if img.f != nil {
		err = img.f.Close()
		img.f = nil
	}
	return multierr.Append(err, img.unlock())
}

func (img *Image) unlock() error {
	if img.lock == nil {
		return nil
	}
	err := img.lock.Unlock()
	img.lock = nil
	return err
}
