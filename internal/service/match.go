package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/pipeline"
)

type Matcher interface {
	Run(ctx context.Context, probes []pipeline.Probe) (*domain.MatchResult, error)
	TopK() int
}

type MatchAuditRepositoryInterface interface {
	Create(ctx context.Context, audit *domain.MatchAudit) error
}

type LatestResultRepositoryInterface interface {
	Save(ctx context.Context, result *domain.LatestResult) error
	Get(ctx context.Context) (*domain.LatestResult, error)
}

type MemberFinderInterface interface {
	FindByName(ctx context.Context, name string) (*domain.Member, error)
}

type MatchService struct {
	matcher    Matcher
	auditRepo  MatchAuditRepositoryInterface
	latestRepo LatestResultRepositoryInterface
	members    MemberFinderInterface
	logger     *slog.Logger
}

func NewMatchService(
	matcher Matcher,
	auditRepo MatchAuditRepositoryInterface,
	latestRepo LatestResultRepositoryInterface,
	members MemberFinderInterface,
	logger *slog.Logger,
) *MatchService {
	return &MatchService{
		matcher:    matcher,
		auditRepo:  auditRepo,
		latestRepo: latestRepo,
		members:    members,
		logger:     logger,
	}
}

// Match runs the pipeline and records an audit entry for the attempt
func (s *MatchService) Match(ctx context.Context, probes []pipeline.Probe, clientIP string) (*domain.MatchResult, error) {
	start := time.Now()

	result, err := s.matcher.Run(ctx, probes)

	audit := &domain.MatchAudit{
		ProbeCount: len(probes),
		TopK:       s.matcher.TopK(),
		LatencyMs:  time.Since(start).Milliseconds(),
		ClientIP:   clientIP,
	}
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			audit.ErrorCode = &appErr.Code
		}
	} else {
		audit.ID = result.MatchID
		audit.ValidProbeCount = result.ValidProbeCount
		audit.ResultsCount = len(result.Matches)
		if len(result.Matches) > 0 {
			top := result.Matches[0]
			audit.TopMatchIdentityKey = &top.IdentityKey
			audit.TopMatchScore = &top.SimilarityScore
		}
	}

	// Audit is best-effort: the match outcome is already decided
	if auditErr := s.auditRepo.Create(ctx, audit); auditErr != nil {
		s.logger.Warn("failed to record match audit", slog.Any("error", auditErr))
	}

	return result, err
}

// SaveLatest stores matches as the latest diagnosis, resolving goodsLinks and
// profileUrl from the member with the same name. Unknown names get nulls.
func (s *MatchService) SaveLatest(ctx context.Context, matches []domain.SavedMatch) (*domain.LatestResult, error) {
	saved := make([]domain.SavedMatch, len(matches))
	copy(saved, matches)

	for i := range saved {
		saved[i].GoodsLinks = nil
		saved[i].ProfileURL = nil

		if saved[i].Name == nil {
			continue
		}

		member, err := s.members.FindByName(ctx, *saved[i].Name)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve member %q: %w", *saved[i].Name, err)
		}

		saved[i].GoodsLinks = member.GoodsLinks
		saved[i].ProfileURL = member.ProfileURL
	}

	result := &domain.LatestResult{Matches: saved}
	if err := s.latestRepo.Save(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// GetLatest returns the last saved diagnosis
func (s *MatchService) GetLatest(ctx context.Context) (*domain.LatestResult, error) {
	return s.latestRepo.Get(ctx)
}
