package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"feedwall/internal/api"
	"feedwall/internal/catalog"
	"feedwall/internal/feed"
	"feedwall/internal/platform/config"
	"feedwall/internal/platform/logger"
	"feedwall/internal/platform/metrics"
	"feedwall/internal/prefs"
	"feedwall/internal/transport"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
	ipinfoTTL       = time.Hour
)

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	met := metrics.New()

	var fixups map[string]string
	if cfg.LocationFixupsFile != "" {
		f, err := catalog.LoadFixups(cfg.LocationFixupsFile)
		if err != nil {
			log.Error("location fixups", "path", cfg.LocationFixupsFile, "error", err)
			os.Exit(1)
		}
		fixups = f
	}

	var source catalog.Source = catalog.FileSource{Path: cfg.CatalogPath}
	if cfg.CatalogURL != "" {
		source = catalog.HTTPSource{URL: cfg.CatalogURL}
	}
	loader := catalog.NewLoader(source, catalog.NewLocationParser(fixups), nil, logger.WithComponent(log, "catalog"))

	thumbs := catalog.LoadThumbnailIndex(filepath.Join(cfg.ThumbnailDir, "list.json"))
	resolver := feed.NewResolver(thumbs, feed.ResolverConfig{
		ProxyMode:   feed.ParseProxyMode(cfg.ProxyMode),
		Placeholder: cfg.PlaceholderURL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := prefs.Open(ctx, prefs.Options{
		Backend:    cfg.PrefsBackend,
		SQLitePath: cfg.PrefsSQLitePath,
		RedisAddr:  cfg.RedisAddr,
	}, logger.WithComponent(log, "prefs"))
	if err != nil {
		log.Error("open prefs store", "backend", cfg.PrefsBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	repo := api.NewInMemoryRepository()
	svc := api.NewService(repo, api.ServiceConfig{
		Loader:   loader,
		Resolver: resolver,
		Feed: feed.Config{
			RefreshInterval: cfg.FeedRefresh,
			RetryDelay:      cfg.SourceRetryDelay,
			Window:          cfg.RotationWindow,
		},
		Prefs:   store,
		IdleTTL: cfg.SessionIdleTTL,
		Log:     logger.WithComponent(log, "sessions"),
		Metrics: met,
	})
	h := api.NewHandler(svc, thumbs, logger.WithComponent(log, "api"), met)

	fetcher := transport.NewFetcher(nil)
	router := api.NewRouter(api.RouterConfig{
		Handler:      h,
		Proxy:        transport.NewProxy(fetcher, logger.WithComponent(log, "proxy"), met),
		IPInfo:       transport.NewIPInfo("https://ipinfo.io", fetcher, cfg.IPInfoRPS, ipinfoTTL),
		Metrics:      met,
		Log:          log,
		ThumbnailDir: cfg.ThumbnailDir,
		StaticDir:    cfg.StaticDir,
	})

	go svc.RunJanitor(ctx, janitorInterval)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"rotation_window", cfg.RotationWindow,
		"proxy_mode", cfg.ProxyMode,
		"prefs_backend", cfg.PrefsBackend,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	cancel()

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	svc.Shutdown()

	log.Info("server stopped")
}
