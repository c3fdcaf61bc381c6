package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/pipeline"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB

	// FormFieldImages is the multipart field carrying the probe images
	FormFieldImages = "images"
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// MatchService runs a match and records it
type MatchService interface {
	Match(ctx context.Context, probes []pipeline.Probe, clientIP string) (*domain.MatchResult, error)
}

// MatchHandler handles probe uploads
type MatchHandler struct {
	service   MatchService
	maxImages int
	logger    *slog.Logger
}

func NewMatchHandler(service MatchService, maxImages int, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		service:   service,
		maxImages: maxImages,
		logger:    logger,
	}
}

// Match POST /v1/match - rank the gallery against 1..maxImages probe photos.
// The body is the ranked array; the run id is returned in X-Match-ID.
func (h *MatchHandler) Match(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("multipart form: %w", err))
	}

	files := form.File[FormFieldImages]
	if len(files) == 0 {
		return domain.ErrValidationFailed.WithError(fmt.Errorf("field %q requires at least one image", FormFieldImages))
	}
	if len(files) > h.maxImages {
		return domain.ErrTooManyImages.WithError(fmt.Errorf("got %d images, at most %d allowed", len(files), h.maxImages))
	}

	probes := make([]pipeline.Probe, 0, len(files))
	for i, file := range files {
		image, err := readImage(file)
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		probes = append(probes, pipeline.Probe{
			Name:  probeName(file, i),
			Image: image,
		})
	}

	result, err := h.service.Match(c.UserContext(), probes, c.IP())
	if err != nil {
		return err
	}

	c.Set(middleware.HeaderMatchID, result.MatchID.String())
	return c.JSON(result.Matches)
}

// readImage validates and reads one uploaded file
func readImage(file *multipart.FileHeader) ([]byte, error) {
	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: size %d outside 1..%d bytes", file.Filename, file.Size, maxImageSize))
	}

	contentType := file.Header.Get(fiber.HeaderContentType)
	if !validImageTypes[contentType] {
		return nil, domain.ErrInvalidImage.WithError(fmt.Errorf("%s: unsupported content type %q", file.Filename, contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	image, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	return image, nil
}

func probeName(file *multipart.FileHeader, i int) string {
	if name := filepath.Base(file.Filename); name != "." && name != "/" && name != "" {
		return name
	}
	return fmt.Sprintf("probe-%d", i+1)
}
