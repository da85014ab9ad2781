package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"librarycatalog/internal/util"
	"librarycatalog/services/client/internal/app"
	"librarycatalog/services/client/internal/cli"
	"librarycatalog/services/client/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to config.yaml (default ./config.yaml if present)")
		envFile    = flag.String("env", ".env", "dotenv file loaded before the config")
		assumeYes  = flag.Bool("yes", false, "answer yes to every confirmation")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: libcat [-config path] [-env path] [-yes] <command> [flags]")
		fmt.Fprintln(os.Stderr, "run `libcat help` for the command list")
	}
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env: %v\n", err)
		return 1
	}
	fileCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger := util.InitLogger(fileCfg.LogLevel)

	cfg, err := app.ConfigFromFile(fileCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return 1
	}
	prompt := cli.NewPrompter(os.Stdin, os.Stderr, *assumeYes)
	cfg.Confirmer = prompt
	cfg.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCore, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init app: %v\n", err)
		return 1
	}
	defer appCore.Close()

	runner := cli.New(appCore, prompt, os.Stdout, os.Stderr)
	if err := runner.Run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "libcat: %v\n", err)
		var usage *cli.UsageError
		if errors.As(err, &usage) {
			return 2
		}
		return 1
	}
	return 0
}
