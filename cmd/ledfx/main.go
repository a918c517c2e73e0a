package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"libdb.so/ledfx"
	"libdb.so/ledfx/internal/daemon"
	"libdb.so/ledfx/internal/ledvis"
)

var (
	config    = "ledfx.toml"
	verbose   = false
	preview   = false
	seed      uint64
	listModes = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file (.toml, .yaml or .json)")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
	pflag.BoolVar(&preview, "preview", preview, "preview the strip in the terminal")
	pflag.Uint64Var(&seed, "seed", seed, "random seed, overriding the configuration")
	pflag.BoolVar(&listModes, "list-modes", listModes, "list every effect and exit")
}

func main() {
	pflag.Parse()

	if listModes {
		for _, mode := range ledfx.Modes() {
			fmt.Printf("%d\t%s\n", mode, mode)
		}
		return
	}

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := daemon.ParseConfigFile(config)
	if err != nil {
		return err
	}

	if pflag.CommandLine.Changed("seed") {
		cfg.Seed = seed
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	d, err := daemon.NewDaemon(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if preview {
		d.AddOutput(ledvis.NewTerminal(slog.Default().With("output", "terminal")))
	}

	err = d.Run(ctx)
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, ledvis.ErrQuit):
		return nil
	default:
		return fmt.Errorf("daemon failed: %w", err)
	}
}
