package main

import (
	"context"
	_ "embed"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"mycloud/pkg/config"
	"mycloud/pkg/gateway"
	"mycloud/pkg/log"
	"mycloud/pkg/metrics"
	"mycloud/pkg/quota"
	"mycloud/pkg/server"
	"mycloud/pkg/session"
	"mycloud/pkg/users"
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	configPath := flag.String("config", "", "Config file path (default: $XDG_CONFIG_HOME/mycloud/config.yaml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	if *debug {
		log.SetDebugMode()
	}

	if cfg.UsesInsecureSecret() {
		log.Warn().Msg("Session secret is the built-in default, set session.secret or MYCLOUD_SESSION_SECRET")
	}

	if _, err := os.Stat(cfg.Server.WebDir); os.IsNotExist(err) {
		log.Warn().Str("web_dir", cfg.Server.WebDir).Msg("Web directory does not exist, API docs are unavailable")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}

	os.Exit(0)
}

func run(cfg *config.Config) error {
	userStore, err := users.NewStore(cfg.Users.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := userStore.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close user database")
		}
	}()

	directory := users.NewCachedStore(userStore, cfg.Users.CacheTTL)

	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	go invalidateOnSignal(reloadCtx, hangup, directory)

	if cfg.Users.SeedFile != "" {
		count, err := directory.Import(context.Background(), cfg.Users.SeedFile)
		if err != nil {
			return err
		}
		log.Info().Str("seed_file", cfg.Users.SeedFile).Int("users", count).Msg("Imported user roles")
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	storageMetrics := metrics.NewStorageMetrics()

	guard := quota.NewGuard(directory, cfg.Storage.MaxUserSpaceBytes, storageMetrics)

	storage, err := gateway.New(gateway.Config{
		FilesDir:   cfg.Storage.FilesDir,
		GalleryDir: cfg.Storage.GalleryDir,
	}, guard, storageMetrics)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(session.Config{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("files_dir", cfg.Storage.FilesDir).
		Str("gallery_dir", cfg.Storage.GalleryDir).
		Str("max_user_space", cfg.Storage.MaxUserSpace).
		Str("db_path", cfg.Users.DBPath).
		Msg("Storage configured")

	srv := server.NewServer(server.Config{
		WebDir:          cfg.Server.WebDir,
		Version:         strings.TrimSpace(Version),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		BodyLimitBytes:  cfg.Server.BodyLimitBytes,
		MetricsHandler:  metrics.Handler(),
	}, storage, sessions)

	return srv.Start(cfg.Server.Addr)
}
