package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/masahiro331/go-ext2-filesystem/ext2"
)

// Check implements subcommands.Command for the "check" command.
type Check struct{}

// Name implements subcommands.Command.Name.
func (*Check) Name() string {
	return "check"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Check) Synopsis() string {
	return "repair free counters, bitmaps, entry types and deletion times"
}

// Usage implements subcommands.Command.Usage.
func (*Check) Usage() string {
	return `check <image> - check and repair the filesystem in <image>.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Check) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (c *Check) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	err := env.withFS(f.Arg(0), func(fsys *ext2.FileSystem) error {
		report, err := fsys.Check(env.Stdout)
		if err != nil {
			return err
		}
		env.Logger.Info("check finished", zap.Int("repaired", report.Total))
		return nil
	})
	return env.exit(c.Name(), err)
}
