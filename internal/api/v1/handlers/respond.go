package handlers

import (
	"context"

	"taskboard/internal/metrics"
	"taskboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
	})
}

func (h *Handler) storageError(c *fiber.Ctx, message string, err error) error {
	h.log.Error.Error(message, zap.Error(err))
	return errorResponse(c, fiber.StatusInternalServerError, message)
}

// parseBody decodes and validates the JSON body into dst. On failure it
// writes the 400 response and returns false.
func (h *Handler) parseBody(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		h.log.Error.Error("Bad request", zap.Error(err), zap.String("url", c.OriginalURL()))
		return false, errorResponse(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.validate.Struct(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  describe(err),
			"success": false,
			"status":  fiber.StatusBadRequest,
		})
	}
	return true, nil
}

// parsePage reads skip and limit, defaulting to 0 and models.DefaultLimit.
func (h *Handler) parsePage(c *fiber.Ctx) (models.Page, bool, error) {
	page := models.DefaultPage()
	if err := c.QueryParser(&page); err != nil {
		return page, false, errorResponse(c, fiber.StatusBadRequest, "Invalid paging parameters")
	}
	if err := h.validate.Struct(page); err != nil {
		return page, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  describe(err),
			"success": false,
			"status":  fiber.StatusBadRequest,
		})
	}
	return page, true, nil
}

// cached reads key from the cache into dest. Cache failures count as misses.
func (h *Handler) cached(ctx context.Context, kind, key string, dest any) bool {
	ok, err := h.cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues(kind, "error").Inc()
		h.log.Error.Error("Error reading cache", zap.String("key", key), zap.Error(err))
		return false
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues(kind, "hit").Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues(kind, "miss").Inc()
	}
	return ok
}

func (h *Handler) remember(ctx context.Context, key string, value any) {
	if err := h.cache.Add(ctx, key, value); err != nil {
		h.log.Error.Error("Error caching value", zap.String("key", key), zap.Error(err))
	}
}

func (h *Handler) forget(ctx context.Context, keys ...string) {
	if err := h.cache.Invalidate(ctx, keys...); err != nil {
		h.log.Error.Error("Error invalidating cache", zap.Strings("keys", keys), zap.Error(err))
	}
}
