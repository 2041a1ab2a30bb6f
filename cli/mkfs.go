package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/masahiro331/go-ext2-filesystem/ext2"
	"github.com/masahiro331/go-ext2-filesystem/image"
)

// Mkfs implements subcommands.Command for the "mkfs" command.
type Mkfs struct {
	blocks uint
	inodes uint
	label  string
}

// Name implements subcommands.Command.Name.
func (*Mkfs) Name() string {
	return "mkfs"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkfs) Synopsis() string {
	return "create a new empty image"
}

// Usage implements subcommands.Command.Usage.
func (*Mkfs) Usage() string {
	return `mkfs [-blocks N] [-inodes N] [-label name] <image> - create <image>, which must
not exist yet.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Mkfs) SetFlags(f *flag.FlagSet) {
	f.UintVar(&m.blocks, "blocks", 128, "number of 1KiB blocks")
	f.UintVar(&m.inodes, "inodes", 32, "number of inodes, a multiple of 8")
	f.StringVar(&m.label, "label", "", "volume name")
}

// Execute implements subcommands.Command.Execute.
func (m *Mkfs) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := environment(args)
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return env.exit(m.Name(), m.run(env, f.Arg(0)))
}

func (m *Mkfs) run(env *Env, path string) (err error) {
	opts := ext2.FormatOptions{
		Blocks:     uint32(m.blocks),
		Inodes:     uint32(m.inodes),
		VolumeName: m.label,
	}
	img, err := image.Create(path, int64(opts.Blocks)*ext2.BlockSize, env.imageOptions()...)
	if err != nil {
		return xerrors.Errorf("failed to create image: %w", err)
	}
	defer func() {
		err = multierr.Append(err, img.Close())
	}()

	if err := ext2.Format(img, opts); err != nil {
		return xerrors.Errorf("failed to format %s: %w", path, err)
	}
	env.Logger.Info("formatted", zap.String("image", path), zap.Uint32("blocks", opts.Blocks), zap.Uint32("inodes", opts.Inodes))
	return nil
}
