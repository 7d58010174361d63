package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camuig/pankou/internal/config"
	"github.com/camuig/pankou/internal/feed"
	"github.com/camuig/pankou/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	csvPath := flag.String("csv", "", "CSV written by the watcher (overrides feed.csv_path)")
	port := flag.Int("port", 0, "listen port (overrides feed.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *csvPath != "" {
		cfg.Feed.CSVPath = *csvPath
	}
	if *port != 0 {
		cfg.Feed.Port = *port
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	srv := feed.NewServer(cfg.Feed.CSVPath, cfg.Feed.Port, log.With("feed"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("feed server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("feed server shutdown error", "error", err)
		}
	}
}
