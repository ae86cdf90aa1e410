package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/scenekit/internal/config"
	"github.com/zeusync/scenekit/internal/console"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/injector"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCENEKIT_CONFIG"), "path to the yaml configuration")
	scriptPath := flag.String("script", "", "read console commands from this file instead of stdin")
	flag.Parse()

	if err := run(*configPath, *scriptPath); err != nil {
		fmt.Fprintln(os.Stderr, "scenekit:", err)
		os.Exit(1)
	}
}

func run(configPath, scriptPath string) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopCh)
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	root, cleanup, err := injector.InitializeRoot(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if syncer, ok := root.Logger.(interface{ Sync() error }); ok {
		defer func() { _ = syncer.Sync() }()
	}

	// Deferred after cleanup so the rescue console runs while storage is open.
	console.SetRescueRoot(root)
	defer func() {
		if r := recover(); r != nil {
			console.Rescue(r, os.Stdin, os.Stdout)
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()

	root.Logger.Info("session started",
		log.String("storage", string(root.Storage.Driver())),
		log.Int("components", len(root.Registry.Components())),
	)

	if loadErr := root.Autoload(ctx); loadErr != nil {
		root.Logger.Warn("some scenes were not autoloaded", log.Error(loadErr))
	}

	var (
		in   io.Reader = os.Stdin
		opts []console.Option
	)
	if scriptPath != "" {
		script, err := os.Open(scriptPath)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer script.Close()
		in = script
		opts = append(opts, console.WithEcho())
	}

	return console.New(root, in, os.Stdout, opts...).Run(ctx)
}
