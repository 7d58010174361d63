package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/camuig/pankou/internal/changes"
	"github.com/camuig/pankou/internal/clock"
	"github.com/camuig/pankou/internal/config"
	"github.com/camuig/pankou/internal/grouping"
	"github.com/camuig/pankou/internal/logger"
	"github.com/camuig/pankou/internal/poller"
	"github.com/camuig/pankou/internal/storage"
	"github.com/camuig/pankou/internal/telegram"
	"github.com/camuig/pankou/internal/web"
)

const pruneEvery = time.Hour

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting pankou monitor", "source", cfg.Source.URL, "interval", cfg.PollInterval().String())

	// Init database
	var repo *storage.Repository
	if cfg.Storage.Enabled {
		db, err := storage.NewDatabase(cfg.Storage.DBPath, log.With("storage"))
		if err != nil {
			log.Error("database init failed", "error", err)
			os.Exit(1)
		}
		repo = storage.NewRepository(db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init services
	notifier := telegram.NewNotifier(cfg, log.With("telegram"))
	client := changes.NewClient(cfg.Source.URL, cfg.SourceTimeout(), log.With("changes"))
	clk := clock.New(cfg.ExchangeLocation(), cfg.FallbackDelay())

	opts := poller.Options{
		Interval:    cfg.PollInterval(),
		EmptyPolicy: poller.ParseEmptyPolicy(cfg.Poll.EmptyPolicy),
		Highlight:   grouping.ParseHighlightRule(cfg.Poll.Highlight),
		Notifier:    notifier,
	}
	var history web.History
	if repo != nil {
		opts.Recorder = repo
		history = repo
	}
	p := poller.New(client, clk, opts, log.With("poller"))
	webServer := web.NewServer(p, history, cfg, log.With("web"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	g.Go(webServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return webServer.Shutdown(shutdownCtx)
	})
	if repo != nil {
		g.Go(func() error { return pruneLoop(gctx, repo, cfg.Retention(), log) })
	}

	notifier.NotifyStatus("📈 盘口异动监控已启动")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("monitor stopped with error", "error", err)
		notifier.NotifyStatus("🛑 盘口异动监控异常退出")
		os.Exit(1)
	}

	notifier.NotifyStatus("🛑 盘口异动监控已停止")
	log.Info("pankou monitor stopped")
}

// pruneLoop trims the fetch log once at start and then hourly.
func pruneLoop(ctx context.Context, repo *storage.Repository, keep time.Duration, log *logger.Logger) error {
	ticker := time.NewTicker(pruneEvery)
	defer ticker.Stop()

	for {
		n, err := repo.Prune(time.Now().Add(-keep))
		if err != nil {
			log.Error("prune fetch logs", "error", err)
		} else if n > 0 {
			log.Info("pruned fetch logs", "rows", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
