package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/fieldfiles/internal/pkg/utils"
	"github.com/gartstein/fieldfiles/internal/uploader/config"
	"github.com/gartstein/fieldfiles/internal/uploader/controller"
	"github.com/gartstein/fieldfiles/internal/uploader/db"
	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"github.com/gartstein/fieldfiles/internal/uploader/storage/dropbox"
	"github.com/gartstein/fieldfiles/internal/uploader/storage/minio"
	"go.uber.org/zap"
)

// eventSink is a producer that must be flushed on exit.
type eventSink interface {
	controller.EventProducer
	Close()
}

// openRepository opens the store, retrying while the database comes up.
func openRepository(cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	dbConf := &db.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		LogSQL: cfg.Debug,
		Seed:   seedCompany(cfg.SeedCompany),
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(dbConf)
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return repo, nil
}

func seedCompany(s config.SeedCompany) *models.NewCompany {
	if s.Name == "" {
		return nil
	}
	optional := func(v string) *string {
		if v == "" {
			return nil
		}
		return utils.Ptr(v)
	}
	return &models.NewCompany{
		Name:         s.Name,
		ContactEmail: optional(s.Email),
		ContactPhone: optional(s.Phone),
		Address:      optional(s.Address),
	}
}

// newEventSink returns a Kafka producer, or a no-op one when no brokers are set.
func newEventSink(cfg *config.Config, logger *zap.Logger) eventSink {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopProducer{}
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.KafkaTopic)
	if err != nil {
		logger.Warn("Kafka unavailable, events disabled", zap.Error(err))
		return events.NopProducer{}
	}
	return producer
}

// newAutoUploadStore builds the backend of the fixed-location mode. It
// returns nil when the mode is disabled.
func newAutoUploadStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Client, error) {
	au := cfg.AutoUpload
	switch au.Driver {
	case config.AutoUploadDisabled:
		return nil, nil
	case config.AutoUploadDropbox:
		return dropbox.NewClient(au.DropboxToken, cfg.UploadTimeout, logger), nil
	case config.AutoUploadMinIO:
		return minio.New(ctx, minio.Config{
			Endpoint:  au.MinIOEndpoint,
			AccessKey: au.MinIOAccessKey,
			SecretKey: au.MinIOSecretKey,
			Bucket:    au.MinIOBucket,
			UseSSL:    au.MinIOUseSSL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown auto upload driver %q", au.Driver)
	}
}
