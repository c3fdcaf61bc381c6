package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 2 * time.Second

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// GallerySizer reports how many reference entries are loaded
type GallerySizer interface {
	GallerySize() int
}

type HealthHandler struct {
	version string
	gallery GallerySizer
	db      Pinger
}

// NewHealthHandler builds the probes; gallery and db may be nil
func NewHealthHandler(version string, gallery GallerySizer, db Pinger) *HealthHandler {
	return &HealthHandler{
		version: version,
		gallery: gallery,
		db:      db,
	}
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version,omitempty"`
	GallerySize *int              `json:"gallery_size,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready reports 503 until the gallery holds entries and the database answers
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ready", Checks: map[string]string{}}
	ready := true

	if h.gallery != nil {
		size := h.gallery.GallerySize()
		resp.GallerySize = &size
		if size == 0 {
			resp.Checks["gallery"] = "empty"
			ready = false
		} else {
			resp.Checks["gallery"] = "ok"
		}
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			resp.Checks["database"] = err.Error()
			ready = false
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	if !ready {
		resp.Status = "not_ready"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
