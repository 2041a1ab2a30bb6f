package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/masahiro331/go-ext2-filesystem/cli"
	"github.com/masahiro331/go-ext2-filesystem/config"
)

func main() {
	cdr := subcommands.NewCommander(flag.CommandLine, filepath.Base(os.Args[0]))
	configPath := flag.String("config", "", "path to a TOML config file (default $"+config.EnvPath+")")
	logLevel := flag.String("log-level", "", "override the configured log level")
	cli.Register(cdr)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger, err := cfg.Log.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	env := &cli.Env{
		Config: cfg,
		Logger: logger,
		Stdout: os.Stdout,
	}
	status := cdr.Execute(context.Background(), env)
	_ = logger.Sync()
	os.Exit(int(status))
}
