// Package app wires configuration into a ready importer.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ContentImport/internal/config"
	"github.com/JonMunkholm/ContentImport/internal/core"
	"github.com/JonMunkholm/ContentImport/internal/store/blob"
	"github.com/JonMunkholm/ContentImport/internal/store/postgres"
)

// App holds the long-lived dependencies shared by the server and CLI.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Store    *postgres.Store
	Blobs    core.BlobStore
	Importer *core.Importer
	Logger   *slog.Logger
}

// New connects to the database, opens the media backend and builds the
// importer. Close releases the pool.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	store := postgres.New(pool)

	blobs, err := NewBlobStore(ctx, cfg.Media)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Pool:     pool,
		Store:    store,
		Blobs:    blobs,
		Importer: core.NewImporter(store, store, blobs, ImportOptions(cfg), logger),
		Logger:   logger,
	}, nil
}

// Close releases the connection pool.
func (a *App) Close() {
	a.Pool.Close()
}

// NewBlobStore opens the configured media backend.
func NewBlobStore(ctx context.Context, cfg config.MediaConfig) (core.BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return blob.NewLocalStore(cfg.Root)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

// ImportOptions maps configuration onto importer options.
func ImportOptions(cfg *config.Config) core.Options {
	return core.Options{
		HomeType:            cfg.Import.HomeType,
		SectionType:         cfg.Import.SectionType,
		ItemType:            cfg.Import.ItemType,
		TitleField:          cfg.Import.TitleField,
		DescriptionField:    cfg.Import.DescriptionField,
		ImageField:          cfg.Import.ImageField,
		StrictColumns:       cfg.Import.StrictColumns,
		CleanupOrphanImages: cfg.Import.CleanupOrphanImages,
		MediaPrefix:         cfg.Media.Prefix,
	}
}
