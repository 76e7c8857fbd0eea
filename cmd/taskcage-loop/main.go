// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// taskcage-loop is the orchestrator's CLI entrypoint. It exposes three
// subcommands:
//
//	run           poll tasks/ continuously until a signal arrives
//	run --once    process a single pass and exit (used by the
//	              idempotence tests: invoking it twice over the same
//	              handoff root must leave state unchanged the second
//	              time)
//	selftest      run the sandbox isolation checks against the
//	              configured engine/image and report pass/fail
//
// Configuration is loaded from TASKCAGE_CONFIG or --config; there is
// no fallback discovery, matching lib/config's philosophy of
// deterministic, auditable configuration.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/taskcage/taskcage/internal/config"
	"github.com/taskcage/taskcage/internal/loop"
	"github.com/taskcage/taskcage/internal/process"
	"github.com/taskcage/taskcage/internal/sandboxrunner"
	"github.com/taskcage/taskcage/lib/version"
)

// newLogger builds the process-wide logger: a human-readable text
// handler when stderr is an interactive terminal, JSON otherwise
// (the expected case when taskcage-loop runs unattended and its
// structured logs are shipped to a collector).
func newLogger() *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) > 0 && args[0] == "--version" {
		fmt.Printf("taskcage-loop %s\n", version.Info())
		return nil
	}

	if len(args) == 0 {
		printTopLevelHelp()
		return nil
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "run":
		return runCommand(rest)
	case "selftest":
		return selftestCommand(rest)
	case "-h", "--help":
		printTopLevelHelp()
		return nil
	default:
		return fmt.Errorf("unknown subcommand %q (want \"run\" or \"selftest\")", sub)
	}
}

func printTopLevelHelp() {
	fmt.Fprintf(os.Stderr, `taskcage-loop: local AI task execution orchestrator

Usage:
  taskcage-loop run [--once] [--config path]
  taskcage-loop selftest [--config path]
  taskcage-loop --version

Configuration is read from the TASKCAGE_CONFIG environment variable
unless --config is given.
`)
}

func loadConfig(flagSet *pflag.FlagSet, configPath string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runCommand(args []string) error {
	var once bool
	var configPath string

	flagSet := pflag.NewFlagSet("taskcage-loop run", pflag.ContinueOnError)
	flagSet.BoolVar(&once, "once", false, "process a single pass and exit, instead of polling forever")
	flagSet.StringVar(&configPath, "config", "", "path to taskcage.yaml (overrides TASKCAGE_CONFIG)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected arguments: %v", extra)
	}

	cfg, err := loadConfig(flagSet, configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	engine, err := cfg.EngineBinary()
	if err != nil {
		return err
	}

	loopCfg := loop.Config{
		Dirs:            loop.NewDirs(cfg.Paths.HandoffRoot),
		TargetRepo:      cfg.Paths.TargetRepo,
		Engine:          engine,
		Image:           cfg.Sandbox.Image,
		ExecutorCommand: []string{"opencode", "run"},
		ExecutorTimeout: cfg.Sandbox.Timeout,
		PollInterval:    cfg.Loop.PollInterval,
		Logger:          newLogger(),
	}
	if err := loopCfg.Dirs.Ensure(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := loop.New(loopCfg)
	if once {
		return l.RunOnce(ctx)
	}
	return l.Run(ctx)
}

func selftestCommand(args []string) error {
	var configPath string

	flagSet := pflag.NewFlagSet("taskcage-loop selftest", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to taskcage.yaml (overrides TASKCAGE_CONFIG)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := loadConfig(flagSet, configPath)
	if err != nil {
		return err
	}

	engine, err := cfg.EngineBinary()
	if err != nil {
		return err
	}

	runner := sandboxrunner.New(engine)
	base := sandboxrunner.RunSpec{
		Engine:      engine,
		Image:       cfg.Sandbox.Image,
		Worktree:    cfg.Paths.TargetRepo,
		UID:         os.Getuid(),
		GID:         os.Getgid(),
		MemoryLimit: cfg.Sandbox.MemoryLimit,
		CPULimit:    cfg.Sandbox.CPULimit,
		PIDsLimit:   cfg.Sandbox.PIDsLimit,
		TmpfsSize:   cfg.Sandbox.TmpfsSize,
		Timeout:     cfg.Sandbox.Timeout,
	}

	results, err := sandboxrunner.RunSelfTests(context.Background(), runner, base)
	if err != nil {
		return fmt.Errorf("selftest: %w", err)
	}

	failed := 0
	for _, result := range results {
		status := "ok"
		if !result.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %-30s %s\n", status, result.Test.Name, result.Test.Description)
		if !result.Passed {
			fmt.Printf("       %s\n", result.Error)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d isolation checks failed", failed, len(results))
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", flagSet.Name())
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
