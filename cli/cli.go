// Package cli implements the ext2fs subcommands.
package cli

import (
	"errors"
	"io"
	"io/fs"
	"strings"

	"github.com/google/subcommands"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/masahiro331/go-ext2-filesystem/config"
	"github.com/masahiro331/go-ext2-filesystem/ext2"
	"github.com/masahiro331/go-ext2-filesystem/image"
)

// Env is handed to every command as its first Execute argument.
type Env struct {
	Config config.Config
	Logger *zap.Logger
	Stdout io.Writer
}

// Register adds every ext2fs command to cdr.
func Register(cdr *subcommands.Commander) {
	cdr.Register(cdr.HelpCommand(), "")
	cdr.Register(cdr.FlagsCommand(), "")
	cdr.Register(cdr.CommandsCommand(), "")

	const (
		repair = "repair"
		modify = "modify"
		read   = "read"
	)
	cdr.Register(new(Check), repair)
	cdr.Register(new(Copy), modify)
	cdr.Register(new(Link), modify)
	cdr.Register(new(Mkdir), modify)
	cdr.Register(new(Remove), modify)
	cdr.Register(new(Restore), modify)
	cdr.Register(new(Mkfs), modify)
	cdr.Register(new(List), read)
	cdr.Register(new(Cat), read)
}

// SplitPath splits an absolute image path into its components. Trailing and
// repeated slashes are ignored; "/" yields no components.
func SplitPath(p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, xerrors.Errorf("%q is not an absolute path: %w", p, ext2.ErrNotFound)
	}
	var components []string
	for _, c := range strings.Split(p, "/") {
		if c != "" {
			components = append(components, c)
		}
	}
	return components, nil
}

// fsName turns path components into an io/fs name.
func fsName(components []string) string {
	if len(components) == 0 {
		return "."
	}
	return strings.Join(components, "/")
}

// ExitCode maps an error to the errno returned by the process.
func ExitCode(err error) subcommands.ExitStatus {
	var code unix.Errno
	switch {
	case err == nil:
		return subcommands.ExitSuccess
	case errors.Is(err, ext2.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		code = unix.ENOENT
	case errors.Is(err, ext2.ErrAlreadyExists), errors.Is(err, fs.ErrExist):
		code = unix.EEXIST
	case errors.Is(err, ext2.ErrIsADirectory):
		code = unix.EISDIR
	case errors.Is(err, ext2.ErrOutOfSpace), errors.Is(err, ext2.ErrDirectoryFull):
		code = unix.ENOSPC
	case errors.Is(err, ext2.ErrUnsupportedFileSize):
		code = unix.EFBIG
	case errors.Is(err, ext2.ErrNameTooLong):
		code = unix.ENAMETOOLONG
	case errors.Is(err, fs.ErrInvalid):
		code = unix.EINVAL
	default:
		return subcommands.ExitFailure
	}
	return subcommands.ExitStatus(code)
}

func (env *Env) exit(command string, err error) subcommands.ExitStatus {
	if err != nil {
		env.Logger.Error("command failed", zap.String("command", command), zap.Error(err))
	}
	return ExitCode(err)
}

func (env *Env) imageOptions() []image.Option {
	return []image.Option{
		image.WithLock(env.Config.Image.Lock),
		image.WithSync(env.Config.Image.Sync),
	}
}

// withFS opens the image at path, runs fn on it and closes it again.
func (env *Env) withFS(path string, fn func(*ext2.FileSystem) error) (err error) {
	img, err := image.Open(path, env.imageOptions()...)
	if err != nil {
		return xerrors.Errorf("failed to open image: %w", err)
	}
	defer func() {
		err = multierr.Append(err, img.Close())
	}()

	fsys, err := ext2.NewFS(img, ext2.WithLogger(env.Logger.With(zap.String("image", img.Path()))))
	if err != nil {
		return xerrors.Errorf("failed to load filesystem: %w", err)
	}
	return fn(fsys)
}

func environment(args []interface{}) *Env {
	return args[0].(*Env)
}
