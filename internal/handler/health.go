package handler

import (
	"context"
	"strings"
	"time"

	"mcq-worker/internal/domain"

	"github.com/gofiber/fiber/v2"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProgressReader returns the latest progress snapshot of a job.
type ProgressReader interface {
	Get(ctx context.Context, jobID string) (*domain.ProgressUpdate, error)
}

// HealthResponse is served by GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	WorkerID string `json:"worker_id"`
	Redis    string `json:"redis"`
}

// ProgressResponse is served by GET /api/jobs/:id/progress.
type ProgressResponse struct {
	JobID     string     `json:"job_id"`
	Progress  int        `json:"progress"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// HealthHandler exposes liveness and local progress lookups. Both
// collaborators are optional.
type HealthHandler struct {
	workerID string
	cache    Pinger
	progress ProgressReader
}

func NewHealthHandler(workerID string, cache Pinger, progress ProgressReader) *HealthHandler {
	return &HealthHandler{workerID: workerID, cache: cache, progress: progress}
}

// Register mounts the handler's routes on app.
func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/healthz", h.Health)
	app.Get("/api/jobs/:id/progress", h.GetProgress)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok", WorkerID: h.workerID, Redis: "disabled"}
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Redis = "unreachable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		resp.Redis = "ok"
	}
	return c.JSON(resp)
}

func (h *HealthHandler) GetProgress(c *fiber.Ctx) error {
	if h.progress == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "progress snapshots are disabled")
	}
	jobID := strings.TrimSpace(c.Params("id"))
	if jobID == "" {
		return domain.NewInvalidInputError("job id is required")
	}

	update, err := h.progress.Get(c.UserContext(), jobID)
	if err != nil {
		return err
	}

	resp := ProgressResponse{
		JobID:    jobID,
		Progress: update.Percent,
		Status:   update.Status,
		Message:  update.Message,
	}
	if !update.UpdatedAt.IsZero() {
		resp.UpdatedAt = &update.UpdatedAt
	}
	return c.JSON(resp)
}
