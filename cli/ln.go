package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/masahiro331/go-ext2-filesystem/ext2"
)

// Link implements subcommands.Command for the "ln" command.
type Link struct {
	symbolic bool
}

// Name implements subcommands.Command.Name.
func (*Link) Name() string {
	return "ln"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Link) Synopsis() string {
	return "create a hard or symbolic link"
}

// Usage implements subcommands.Command.Usage.
func (*Link) Usage() string {
	return `ln [-s] <image> <source> <dest> - link the absolute path <dest> to <source>.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *Link) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&l.symbolic, "s", false, "create a symbolic link storing <source> as its target")
}

// Execute implements subcommands.Command.Execute.
func (l *Link) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return env.exit(l.Name(), l.run(env, f.Arg(0), f.Arg(1), f.Arg(2)))
}

func (l *Link) run(env *Env, imagePath, source, dest string) error {
	destComponents, err := SplitPath(dest)
	if err != nil {
		return err
	}
	if l.symbolic {
		return env.withFS(imagePath, func(fsys *ext2.FileSystem) error {
			_, err := fsys.Symlink(source, destComponents)
			return err
		})
	}

	srcComponents, err := SplitPath(source)
	if err != nil {
		return err
	}
	return env.withFS(imagePath, func(fsys *ext2.FileSystem) error {
		return fsys.Link(srcComponents, destComponents)
	})
}
