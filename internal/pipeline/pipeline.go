// Package pipeline runs one probe-to-gallery match: extract, fuse, score,
// rank and enrich.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/matching"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/profile"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
)

// Stage is a step of a run
type Stage string

const (
	StageStart      Stage = "start"
	StageExtracting Stage = "extracting"
	StageFusing     Stage = "fusing"
	StageScoring    Stage = "scoring"
	StageRanking    Stage = "ranking"
	StageEnriching  Stage = "enriching"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// StageHook observes stage transitions of a run
type StageHook func(matchID uuid.UUID, stage Stage)

// Probe is one submitted image
type Probe struct {
	Name  string
	Image []byte
}

// Gallery is the read-only reference snapshot; *gallery.Gallery implements it
type Gallery interface {
	Entries() []domain.ReferenceEntry
	Dimension() int
	Len() int
}

// Options tunes a Pipeline. Zero values fall back to DefaultOptions.
type Options struct {
	TopK           int
	Weights        matching.Weights
	ExtractWorkers int
	EnrichWorkers  int
	Hook           StageHook
}

func DefaultOptions() Options {
	return Options{
		TopK:           matching.DefaultTopK,
		Weights:        matching.DefaultWeights,
		ExtractWorkers: 1,
		EnrichWorkers:  4,
	}
}

// Pipeline orchestrates a match run. It holds no per-run state and is safe
// for concurrent use.
type Pipeline struct {
	embedder provider.Embedder
	gallery  Gallery
	enricher *Enricher
	opts     Options
	logger   *slog.Logger
}

func New(embedder provider.Embedder, gallery Gallery, directory profile.Directory, logger *slog.Logger, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.Weights == (matching.Weights{}) {
		opts.Weights = def.Weights
	}
	if opts.ExtractWorkers <= 0 {
		opts.ExtractWorkers = def.ExtractWorkers
	}
	if opts.EnrichWorkers <= 0 {
		opts.EnrichWorkers = def.EnrichWorkers
	}

	return &Pipeline{
		embedder: embedder,
		gallery:  gallery,
		enricher: NewEnricher(directory, opts.EnrichWorkers, logger),
		opts:     opts,
		logger:   logger,
	}
}

// TopK returns the configured result bound
func (p *Pipeline) TopK() int {
	return p.opts.TopK
}

// GallerySize returns the number of reference entries
func (p *Pipeline) GallerySize() int {
	return p.gallery.Len()
}

// Run matches probes against the gallery. On failure the error is always a
// *domain.AppError and no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, probes []Probe) (*domain.MatchResult, error) {
	run := &run{
		p:       p,
		matchID: uuid.New(),
		start:   time.Now(),
	}
	run.enter(StageStart)

	result, err := run.execute(ctx, probes)
	if err != nil {
		return nil, run.fail(err)
	}

	run.enter(StageDone)
	p.logger.Info("match completed",
		slog.String("match_id", run.matchID.String()),
		slog.Int("probes", result.ProbeCount),
		slog.Int("valid_probes", result.ValidProbeCount),
		slog.Int("results", len(result.Matches)),
		slog.Int64("latency_ms", result.LatencyMs),
	)

	return result, nil
}

type run struct {
	p       *Pipeline
	matchID uuid.UUID
	start   time.Time
}

func (r *run) enter(stage Stage) {
	r.p.logger.Debug("pipeline stage",
		slog.String("match_id", r.matchID.String()),
		slog.String("stage", string(stage)),
	)
	if r.p.opts.Hook != nil {
		r.p.opts.Hook(r.matchID, stage)
	}
}

func (r *run) execute(ctx context.Context, probes []Probe) (*domain.MatchResult, error) {
	p := r.p
	dim := p.gallery.Dimension()

	if len(probes) == 0 {
		return nil, domain.ErrNoValidProbe.WithError(errors.New("no probe images provided"))
	}

	r.enter(StageExtracting)
	results, err := p.extract(ctx, probes)
	if err != nil {
		return nil, err
	}

	valid, err := r.validProbes(probes, results, dim)
	if err != nil {
		return nil, err
	}

	r.enter(StageFusing)
	representative, err := matching.Fuse(valid, dim)
	if err != nil {
		return nil, err
	}

	r.enter(StageScoring)
	scored, err := matching.Score(representative, p.gallery.Entries(), p.opts.Weights)
	if err != nil {
		return nil, err
	}

	r.enter(StageRanking)
	top := matching.TopK(scored, p.opts.TopK)

	r.enter(StageEnriching)
	matches := p.enricher.Enrich(ctx, top)

	return &domain.MatchResult{
		MatchID:         r.matchID,
		Matches:         matches,
		ProbeCount:      len(probes),
		ValidProbeCount: len(valid),
		GallerySize:     p.gallery.Len(),
		LatencyMs:       time.Since(r.start).Milliseconds(),
	}, nil
}

// extract embeds every probe on a bounded pool. Results keep probe order.
func (p *Pipeline) extract(ctx context.Context, probes []Probe) ([]provider.ProbeResult, error) {
	results := make([]provider.ProbeResult, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.ExtractWorkers)

	for i, probe := range probes {
		g.Go(func() error {
			res, err := p.embedder.Embed(gctx, probe.Image)
			if err != nil {
				return domain.ErrProviderUnavailable.WithError(fmt.Errorf("probe %d (%s): %w", i+1, probe.Name, err))
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// validProbes keeps the OK probes. An OK probe of the wrong dimension or
// with a non-finite value is a shape error, never silently dropped.
func (r *run) validProbes(probes []Probe, results []provider.ProbeResult, dim int) ([]domain.Embedding, error) {
	valid := make([]domain.Embedding, 0, len(results))

	for i, res := range results {
		if res.Status != provider.ProbeOK {
			r.p.logger.Info("probe skipped",
				slog.String("match_id", r.matchID.String()),
				slog.String("probe", probes[i].Name),
				slog.String("status", res.Status.String()),
				slog.String("reason", res.Reason),
			)
			continue
		}
		if len(res.Embedding) != dim {
			return nil, domain.ErrShapeMismatch.WithError(
				fmt.Errorf("probe %d (%s) has %d dimensions, expected %d", i+1, probes[i].Name, len(res.Embedding), dim))
		}
		for j, v := range res.Embedding {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.ErrShapeMismatch.WithError(
					fmt.Errorf("probe %d (%s) has a non-finite value at dimension %d", i+1, probes[i].Name, j+1))
			}
		}
		valid = append(valid, res.Embedding)
	}

	if len(valid) == 0 {
		return nil, domain.ErrNoValidProbe.WithError(fmt.Errorf("none of %d probe images produced an embedding", len(probes)))
	}
	return valid, nil
}

func (r *run) fail(err error) error {
	r.enter(StageFailed)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal.WithError(err)
	}

	r.p.logger.Warn("match failed",
		slog.String("match_id", r.matchID.String()),
		slog.String("code", appErr.Code),
		slog.Any("error", err),
		slog.Int64("latency_ms", time.Since(r.start).Milliseconds()),
	)

	return appErr
}
