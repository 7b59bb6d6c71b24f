package handlers

import (
	"errors"

	"taskboard/internal/cache"
	"taskboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ListUsers is public and pages with skip/limit.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	page, ok, err := h.parsePage(c)
	if !ok {
		return err
	}

	users, err := h.store.ListUsers(c.UserContext(), page.Skip, page.Limit)
	if err != nil {
		return h.storageError(c, "Error fetching users", err)
	}
	return c.JSON(users)
}

// GetUser is public. Responses are cached under user:{id} until one of the
// user's tasks changes.
func (h *Handler) GetUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	ctx := c.UserContext()
	key := cache.UserKey(id)
	var user models.User
	if h.cached(ctx, "user", key, &user) {
		return c.JSON(user)
	}

	found, err := h.store.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		h.log.Audit.Info("User not found", zap.Int("user_id", id))
		return errorResponse(c, fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return h.storageError(c, "Error fetching user", err)
	}

	h.remember(ctx, key, found)
	return c.JSON(found)
}
