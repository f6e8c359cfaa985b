// Command redveil drives a Chrome session over the DevTools protocol and
// curates the feed pages it visits: posts the user hid stay dimmed, posts
// from blocked channels disappear, and both survive restarts through a
// local SQLite store. A small management API exposes stats, the blocked
// list, and bulk cleanup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/redveil/redveil/agent"
	"github.com/redveil/redveil/browser"
	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/dbopen"
	"github.com/redveil/redveil/idgen"
	"github.com/redveil/redveil/locator"
	"github.com/redveil/redveil/mgmt"
	"github.com/redveil/redveil/session"
	"github.com/redveil/redveil/store"
	"github.com/redveil/redveil/visibility"
	"github.com/redveil/redveil/watcher"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration")
		startURL   = flag.String("url", "", "override the start URL")
		dbPath     = flag.String("db", "", "override the store path")
		mgmtAddr   = flag.String("mgmt", "", "management API listen address (empty = disabled)")
		remote     = flag.String("remote", "", "WebSocket URL of an external Chrome (empty = launch)")
		logLevel   = flag.String("log-level", "info", "debug | info | warn | error")
	)
	flag.Parse()

	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if *startURL != "" {
		cfg.Browser.StartURL = *startURL
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *mgmtAddr != "" {
		cfg.Mgmt.Addr = *mgmtAddr
	}
	if *remote != "" {
		cfg.Browser.Remote = *remote
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil && ctx.Err() == nil {
		logger.Error("redveil failed", "error", err)
		os.Exit(1)
	}
	logger.Info("redveil stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Every log line from this run carries the same session id, so
	// overlapping restarts stay distinguishable in aggregated logs.
	logger = logger.With("session_id", idgen.New())

	st, err := store.Open(cfg.Store.Path,
		dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	mgr := browser.NewManager(browser.Config{
		Remote: cfg.Browser.Remote,
		Mode:   browser.ParseMode(cfg.Browser.Stealth),
		Logger: logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.Browser.StartURL)
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	defer tab.Close()

	if landed, err := tab.CurrentURL(ctx); err == nil && landed != cfg.Browser.StartURL {
		logger.Info("start url redirected", "requested", cfg.Browser.StartURL, "landed", landed)
	}

	ag := agent.New(tab.Page, cfg, logger)
	if err := ag.Inject(ctx); err != nil {
		return fmt.Errorf("inject agent: %w", err)
	}

	// The session and the management server stop together: whichever
	// finishes first cancels the other.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	mgmtErr := make(chan error, 1)
	go func() {
		mgmtErr <- mgmt.Serve(runCtx, cfg.Mgmt.Addr, st, cfg, logger)
	}()

	vis := visibility.New(ag, logger)
	sess := session.New(cfg, logger, st, ag,
		locator.New(cfg, logger), vis, watcher.New(cfg, logger))

	runErr := sess.Run(runCtx)
	stop()
	if err := <-mgmtErr; err != nil {
		logger.Error("mgmt server", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
