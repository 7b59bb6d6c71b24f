package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves liveness and readiness probes.
type Health struct {
	db    Pinger
	cache Pinger
}

func NewHealth(db, cache Pinger) *Health {
	return &Health{db: db, cache: cache}
}

func (h *Health) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness pings the database and the cache.
func (h *Health) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus, 2)
	healthy := true
	for name, p := range map[string]Pinger{"database": h.db, "cache": h.cache} {
		if err := p.Ping(ctx); err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			continue
		}
		deps[name] = dependencyStatus{Status: "ok"}
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(readinessResponse{
			Status:       "degraded",
			Dependencies: deps,
		})
	}
	return c.JSON(readinessResponse{Status: "ok", Dependencies: deps})
}
