package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/masahiro331/go-ext2-filesystem/ext2"
)

// pathCommand is a command taking an image and one absolute path.
type pathCommand struct {
	name     string
	synopsis string
	usage    string
	run      func(fsys *ext2.FileSystem, components []string) error
}

func (p *pathCommand) execute(f *flag.FlagSet, args []interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	components, err := SplitPath(f.Arg(1))
	if err != nil {
		return env.exit(p.name, err)
	}
	err = env.withFS(f.Arg(0), func(fsys *ext2.FileSystem) error {
		return p.run(fsys, components)
	})
	return env.exit(p.name, err)
}

var (
	mkdirCommand = pathCommand{
		name:     "mkdir",
		synopsis: "create a directory",
		usage: `mkdir <image> <path> - create the directory <path>; its parent must exist.
`,
		run: func(fsys *ext2.FileSystem, components []string) error {
			_, err := fsys.Mkdir(components)
			return err
		},
	}
	removeCommand = pathCommand{
		name:     "rm",
		synopsis: "remove a file or link",
		usage: `rm <image> <path> - unlink <path>, which must not be a directory.
`,
		run: func(fsys *ext2.FileSystem, components []string) error {
			return fsys.Remove(components)
		},
	}
	restoreCommand = pathCommand{
		name:     "restore",
		synopsis: "undelete a removed file",
		usage: `restore <image> <path> - bring back the removed file <path> if its inode and
blocks have not been reused.
`,
		run: func(fsys *ext2.FileSystem, components []string) error {
			return fsys.Restore(components)
		},
	}
)

// Mkdir implements subcommands.Command for the "mkdir" command.
type Mkdir struct{}

// Name implements subcommands.Command.Name.
func (*Mkdir) Name() string { return mkdirCommand.name }

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkdir) Synopsis() string { return mkdirCommand.synopsis }

// Usage implements subcommands.Command.Usage.
func (*Mkdir) Usage() string { return mkdirCommand.usage }

// SetFlags implements subcommands.Command.SetFlags.
func (*Mkdir) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Mkdir) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return mkdirCommand.execute(f, args)
}

// Remove implements subcommands.Command for the "rm" command.
type Remove struct{}

// Name implements subcommands.Command.Name.
func (*Remove) Name() string { return removeCommand.name }

// Synopsis implements subcommands.Command.Synopsis.
func (*Remove) Synopsis() string { return removeCommand.synopsis }

// Usage implements subcommands.Command.Usage.
func (*Remove) Usage() string { return removeCommand.usage }

// SetFlags implements subcommands.Command.SetFlags.
func (*Remove) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Remove) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return removeCommand.execute(f, args)
}

// Restore implements subcommands.Command for the "restore" command.
type Restore struct{}

// Name implements subcommands.Command.Name.
func (*Restore) Name() string { return restoreCommand.name }

// Synopsis implements subcommands.Command.Synopsis.
func (*Restore) Synopsis() string { return restoreCommand.synopsis }

// Usage implements subcommands.Command.Usage.
func (*Restore) Usage() string { return restoreCommand.usage }

// SetFlags implements subcommands.Command.SetFlags.
func (*Restore) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Restore) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return restoreCommand.execute(f, args)
}
