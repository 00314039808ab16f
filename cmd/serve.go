package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dailyjournal/config"
	"dailyjournal/config/database"
	"dailyjournal/internal/entry/repository"
	"dailyjournal/internal/entry/service"
	"dailyjournal/internal/entry/synchronizer"
	"dailyjournal/pkg/logger"
	redisclient "dailyjournal/pkg/redis"
	"dailyjournal/router"
	"dailyjournal/socket"
	"dailyjournal/store"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	migrate bool
}

func NewServeCommand(opts *RootOptions) *cobra.Command {
	serveOpts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg, serveOpts)
		},
	}

	cmd.Flags().BoolVar(&serveOpts.migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, opts *serveOptions) error {
	dsn := cfg.Database.DSN()
	db, err := database.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	repo := repository.NewEntryRepository(db)
	feed := store.NewFeed(repo, store.NewListener(dsn))
	defer feed.Close()

	var cache synchronizer.Cache
	if cfg.RedisURL != "" {
		rdb, err := redisclient.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Sugar.Warnf("Session cache disabled: %v", err)
		} else {
			defer rdb.Close()
			cache = store.NewSessionCache(rdb, cfg.CacheTTL)
		}
	}

	entries := service.NewEntryService(repo)
	hub := socket.NewHub(feed, entries, cache)

	// Sessions and the feed outlive the signal so that in-flight requests
	// drain first.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feedErr := make(chan error, 1)
	go func() { feedErr <- feed.Run(runCtx) }()
	go hub.Run(runCtx)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router.Setup(cfg, repo, entries, hub),
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("Journal backend listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Sugar.Info("Shutting down server...")
	case err := <-srvErr:
		runErr = fmt.Errorf("server error: %w", err)
	case err := <-feedErr:
		runErr = fmt.Errorf("entry feed stopped: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Forced shutdown: %v", err)
	}
	cancel()
	logger.Sugar.Info("Server exited")
	return runErr
}
