// Package bootstrap assembles a configured pipeline from Config. Both the
// HTTP server and the CLI start here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/cache"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/config"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/database"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/face"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/gallery"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/matching"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/profile"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/repository"
)

const (
	GalleryCSV      = "csv"
	GalleryPostgres = "postgres"

	ProfilePostgres = "postgres"
	ProfileFile     = "file"
	ProfileNone     = "none"
)

// profileCacheNamespace prefixes profile entries in cache_entries
const profileCacheNamespace = "profile"

// Components is a wired pipeline and the resources behind it
type Components struct {
	// Pool is nil when no DATABASE_URL is configured
	Pool      *pgxpool.Pool
	Gallery   *gallery.Gallery
	Members   profile.MemberFinder
	Directory profile.Directory
	Embedder  provider.Embedder
	Pipeline  *pipeline.Pipeline
}

// Close releases the database pool, if any
func (c *Components) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// NeedsDatabase reports whether cfg reads from Postgres
func NeedsDatabase(cfg *config.Config) bool {
	return cfg.GallerySource == GalleryPostgres || cfg.ProfileSource == ProfilePostgres
}

// OpenPool connects to DATABASE_URL
func OpenPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
}

// Build loads the gallery and wires the embedder, the profile directory and
// the pipeline. A pool is opened when DATABASE_URL is set or a source needs it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{}

	if cfg.DatabaseURL != "" || NeedsDatabase(cfg) {
		pool, err := OpenPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		c.Pool = pool
	}

	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	g, err := LoadGallery(ctx, cfg, c.Pool)
	if err != nil {
		return nil, err
	}
	c.Gallery = g
	logger.Info("reference gallery loaded",
		slog.String("source", cfg.GallerySource),
		slog.Int("entries", g.Len()),
		slog.Int("dimension", g.Dimension()),
	)

	members, err := newMemberFinder(cfg, c.Pool)
	if err != nil {
		return nil, err
	}
	c.Members = members
	c.Directory = newDirectory(cfg, members, c.Pool, logger)

	embedder, err := face.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	c.Embedder = embedder

	c.Pipeline = pipeline.New(embedder, g, c.Directory, logger, PipelineOptions(cfg))

	ok = true
	return c, nil
}

// PipelineOptions maps configuration onto pipeline options
func PipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		TopK: cfg.TopK,
		Weights: matching.Weights{
			Cosine:    cfg.CosineWeight,
			Euclidean: cfg.EuclideanWeight,
		},
		ExtractWorkers: cfg.ExtractWorkers,
		EnrichWorkers:  cfg.EnrichWorkers,
	}
}

// LoadGallery reads the reference table from the configured source
func LoadGallery(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*gallery.Gallery, error) {
	var src gallery.Source

	switch cfg.GallerySource {
	case GalleryCSV, "":
		src = gallery.CSVSource{
			Path: cfg.GalleryCSV,
			Options: gallery.CSVOptions{
				KeyColumn: cfg.GalleryKeyColumn,
				Dimension: cfg.EmbeddingDim,
			},
		}
	case GalleryPostgres:
		if pool == nil {
			return nil, fmt.Errorf("gallery source %q requires DATABASE_URL", cfg.GallerySource)
		}
		src = gallery.PostgresSource{Repo: repository.NewReferenceRepository(pool)}
	default:
		return nil, fmt.Errorf("unknown gallery source: %s (supported: %s, %s)", cfg.GallerySource, GalleryCSV, GalleryPostgres)
	}

	return gallery.Load(ctx, src, cfg.EmbeddingDim)
}

func newMemberFinder(cfg *config.Config, pool *pgxpool.Pool) (profile.MemberFinder, error) {
	switch cfg.ProfileSource {
	case ProfilePostgres:
		if pool == nil {
			return nil, fmt.Errorf("profile source %q requires DATABASE_URL", cfg.ProfileSource)
		}
		return repository.NewMemberRepository(pool), nil
	case ProfileFile:
		dir, err := profile.LoadFile(cfg.ProfileFile)
		if err != nil {
			return nil, fmt.Errorf("profile file: %w", err)
		}
		return dir, nil
	case ProfileNone, "":
		return profile.NewFileDirectory(nil), nil
	default:
		return nil, fmt.Errorf("unknown profile source: %s (supported: %s, %s, %s)",
			cfg.ProfileSource, ProfilePostgres, ProfileFile, ProfileNone)
	}
}

// newDirectory wraps the member finder; Postgres lookups are cached in
// cache_entries when PROFILE_CACHE_TTL is positive.
func newDirectory(cfg *config.Config, members profile.MemberFinder, pool *pgxpool.Pool, logger *slog.Logger) profile.Directory {
	if cfg.ProfileSource == ProfileNone || cfg.ProfileSource == "" {
		return profile.Noop{}
	}

	var dir profile.Directory = profile.NewMemberDirectory(members)
	if cfg.ProfileSource == ProfilePostgres && cfg.ProfileCacheTTL > 0 && pool != nil {
		dir = profile.NewCachedDirectory(dir, cache.NewPGCache(pool, profileCacheNamespace), cfg.ProfileCacheTTL, logger)
	}
	return dir
}
