package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// ResultService stores and serves the latest diagnosis
type ResultService interface {
	SaveLatest(ctx context.Context, matches []domain.SavedMatch) (*domain.LatestResult, error)
	GetLatest(ctx context.Context) (*domain.LatestResult, error)
}

type SaveLatestResponse struct {
	Success bool   `json:"success"`
	SavedAt string `json:"saved_at"`
}

type ResultsHandler struct {
	service ResultService
	logger  *slog.Logger
}

func NewResultsHandler(service ResultService, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		service: service,
		logger:  logger,
	}
}

// SaveLatest POST /v1/results/latest - body is a JSON array of matches
func (h *ResultsHandler) SaveLatest(c *fiber.Ctx) error {
	var matches []domain.SavedMatch
	if err := c.BodyParser(&matches); err != nil {
		return domain.ErrBadRequest.WithError(fmt.Errorf("decode matches: %w", err))
	}
	if matches == nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("body must be a JSON array"))
	}

	result, err := h.service.SaveLatest(c.UserContext(), matches)
	if err != nil {
		return err
	}

	h.logger.Info("latest result saved", slog.Int("matches", len(result.Matches)))

	return c.JSON(SaveLatestResponse{
		Success: true,
		SavedAt: result.SavedAt.UTC().Format(time.RFC3339),
	})
}

// GetLatest GET /v1/results/latest - the saved matches as a JSON array
func (h *ResultsHandler) GetLatest(c *fiber.Ctx) error {
	result, err := h.service.GetLatest(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(result.Matches)
}
