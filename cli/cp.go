package cli

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/masahiro331/go-ext2-filesystem/ext2"
)

// Copy implements subcommands.Command for the "cp" command.
type Copy struct{}

// Name implements subcommands.Command.Name.
func (*Copy) Name() string {
	return "cp"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Copy) Synopsis() string {
	return "copy a native file into the image"
}

// Usage implements subcommands.Command.Usage.
func (*Copy) Usage() string {
	return `cp <image> <source> <dest> - copy the native file <source> to the absolute
path <dest> in <image>. If <dest> is a directory the file keeps its name.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Copy) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (c *Copy) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return env.exit(c.Name(), c.run(env, f.Arg(0), f.Arg(1), f.Arg(2)))
}

func (c *Copy) run(env *Env, imagePath, source, dest string) (err error) {
	components, err := SplitPath(dest)
	if err != nil {
		return err
	}
	src, err := os.Open(source)
	if err != nil {
		return xerrors.Errorf("failed to open source: %w", err)
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()
	fi, err := src.Stat()
	if err != nil {
		return xerrors.Errorf("failed to stat source: %w", err)
	}
	if fi.IsDir() {
		return xerrors.Errorf("%s: %w", source, ext2.ErrIsADirectory)
	}

	return env.withFS(imagePath, func(fsys *ext2.FileSystem) error {
		ino, err := fsys.CopyIn(components, src, fi.Size(), filepath.Base(source))
		if err != nil {
			return err
		}
		env.Logger.Info("copied", zap.String("source", source), zap.String("dest", dest), zap.Uint32("ino", ino))
		return nil
	})
}
