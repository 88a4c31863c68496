package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Distopian-UN/aave-v3-origin/internal/bot"
	"github.com/Distopian-UN/aave-v3-origin/internal/config"
	"github.com/Distopian-UN/aave-v3-origin/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging

	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	log.Info("Starting buy adapter", zap.Bool("dry_run", cfg.DryRun))

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize adapter", zap.Error(err))
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Adapter execution error", zap.Error(err))
	}

	runner.Shutdown()
}
