package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/jo/internal/config"
	"github.com/zeusync/jo/internal/injector"
)

func main() {
	configPath := flag.String("config", "configs/jo.yaml", "path to a .yaml or .toml config file")
	logLevel := flag.String("log-level", "", "override log.level")
	feedAddr := flag.String("feed", "", "override runner.feed_addr")
	duration := flag.Duration("duration", 0, "override runner.duration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *feedAddr != "" {
		cfg.Runner.FeedAddr = *feedAddr
	}
	if *duration > 0 {
		cfg.Runner.Duration = *duration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := injector.InitializeRunner(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error starting:", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := r.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error running:", err)
		cleanup()
		os.Exit(1)
	}
}
