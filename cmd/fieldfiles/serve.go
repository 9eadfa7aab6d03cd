package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/fieldfiles/internal/uploader/auth"
	"github.com/gartstein/fieldfiles/internal/uploader/controller"
	"github.com/gartstein/fieldfiles/internal/uploader/handlers"
	"github.com/gartstein/fieldfiles/internal/uploader/metrics"
	"github.com/gartstein/fieldfiles/internal/uploader/storage/dropbox"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.serve(cmd.Context())
		},
	}
}

func (cli *CLI) serve(ctx context.Context) error {
	cfg, logger := cli.cfg, cli.logger
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	producer := newEventSink(cfg, logger)
	defer producer.Close()

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	provider := dropbox.NewProvider(cfg.UploadTimeout, logger)
	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.SessionCookie, cfg.CookieDomain)
	if err != nil {
		return err
	}
	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	deps := handlers.Dependencies{
		Registry: controller.NewRegistryService(repo, producer, logger),
		Uploads:  controller.NewUploadService(repo, producer, m, cfg.UploadTimeout, logger),
		Authorizer: auth.NewManager(auth.OAuthConfig{
			AppKey:      cfg.DropboxAppKey,
			AppSecret:   cfg.DropboxAppSecret,
			RedirectURL: cfg.DropboxRedirectURL,
			Endpoint:    dropbox.Endpoint,
		}, provider, logger),
		Sessions: sessions,
		Storage:  provider,
		Health:   repo,
	}

	autoStore, err := newAutoUploadStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if autoStore != nil {
		deps.AutoUpload = controller.NewAutoUploadService(
			autoStore, cfg.AutoUpload.Folder, cfg.AutoUpload.Concurrency, m, cfg.UploadTimeout, logger)
		logger.Info("Fixed-location upload enabled",
			zap.String("driver", cfg.AutoUpload.Driver),
			zap.String("folder", cfg.AutoUpload.Folder),
		)
	}

	server := handlers.NewServer(cfg.HTTPPort, logger,
		handlers.WithCORS(cfg.CORSOrigins),
		handlers.WithMetrics(m, prometheus.DefaultGatherer),
		handlers.WithMaxMultipartMemory(cfg.MaxUploadMB<<20),
	)
	server.RegisterHandler(handlers.NewHandler(deps, logger))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	return waitForShutdown(server, errCh, logger)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, or the
// server fails, then shuts the server down.
func waitForShutdown(server *handlers.Server, errCh <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	server.Stop()
	logger.Info("Server stopped properly")
	return nil
}
