package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"

	"github.com/google/subcommands"
	"golang.org/x/xerrors"

	"github.com/masahiro331/go-ext2-filesystem/ext2"
)

// List implements subcommands.Command for the "ls" command.
type List struct{}

// Name implements subcommands.Command.Name.
func (*List) Name() string {
	return "ls"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*List) Synopsis() string {
	return "list a directory of the image"
}

// Usage implements subcommands.Command.Usage.
func (*List) Usage() string {
	return `ls <image> [path] - list the directory <path>, "/" by default.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*List) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (l *List) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() < 1 || f.NArg() > 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	dir := "/"
	if f.NArg() == 2 {
		dir = f.Arg(1)
	}
	components, err := SplitPath(dir)
	if err != nil {
		return env.exit(l.Name(), err)
	}

	err = env.withFS(f.Arg(0), func(fsys *ext2.FileSystem) error {
		name := fsName(components)
		entries, err := fsys.ReadDir(name)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				return xerrors.Errorf("failed to stat %s: %w", entry.Name(), err)
			}
			line := fmt.Sprintf("%s %4d %8d %s", info.Mode(), info.(ext2.FileInfo).Ino(), info.Size(), entry.Name())
			if entry.Type()&fs.ModeSymlink != 0 {
				target, err := fsys.ReadLink(fsName(append(components[:len(components):len(components)], entry.Name())))
				if err != nil {
					return err
				}
				line += " -> " + target
			}
			if _, err := fmt.Fprintln(env.Stdout, line); err != nil {
				return xerrors.Errorf("failed to write listing: %w", err)
			}
		}
		return nil
	})
	return env.exit(l.Name(), err)
}

// Cat implements subcommands.Command for the "cat" command.
type Cat struct{}

// Name implements subcommands.Command.Name.
func (*Cat) Name() string {
	return "cat"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Cat) Synopsis() string {
	return "print a file of the image"
}

// Usage implements subcommands.Command.Usage.
func (*Cat) Usage() string {
	return `cat <image> <path> - write the contents of the regular file <path> to stdout.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Cat) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (c *Cat) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	components, err := SplitPath(f.Arg(1))
	if err != nil {
		return env.exit(c.Name(), err)
	}

	err = env.withFS(f.Arg(0), func(fsys *ext2.FileSystem) error {
		file, err := fsys.Open(fsName(components))
		if err != nil {
			return err
		}
		defer file.Close()
		if _, err := io.Copy(env.Stdout, file); err != nil {
			return xerrors.Errorf("failed to copy %s: %w", file.(*ext2.File).FilePath(), err)
		}
		return nil
	})
	return env.exit(c.Name(), err)
}
