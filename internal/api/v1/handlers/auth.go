package handlers

import (
	"errors"

	"taskboard/internal/metrics"
	"taskboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Register creates a user. The email must not be registered yet; the name
// fields are unique too and collide with the same 400.
func (h *Handler) Register(c *fiber.Ctx) error {
	var body models.UserCreate
	if ok, err := h.parseBody(c, &body); !ok {
		return err
	}
	req := body.NewUser()

	ctx := c.UserContext()
	_, err := h.store.GetUserByEmail(ctx, req.Email)
	if err == nil {
		h.log.Security.Warn("Duplicate email", zap.String("email", req.Email))
		return errorResponse(c, fiber.StatusBadRequest, "Email already registered")
	}
	if !errors.Is(err, models.ErrNotFound) {
		return h.storageError(c, "Error checking email", err)
	}

	user, err := h.store.CreateUser(ctx, req)
	switch {
	case errors.Is(err, models.ErrEmailTaken):
		h.log.Security.Warn("Duplicate email", zap.String("email", req.Email))
		return errorResponse(c, fiber.StatusBadRequest, "Email already registered")
	case errors.Is(err, models.ErrUserExists):
		h.log.Security.Warn("Duplicate user name",
			zap.String("user_name", req.UserName),
			zap.String("user_surname", req.UserSurname),
		)
		return errorResponse(c, fiber.StatusBadRequest, "User with this name already exists")
	case err != nil:
		return h.storageError(c, "Error creating user", err)
	}

	metrics.UsersRegisteredTotal.Inc()
	h.log.Audit.Info("User registered successfully", zap.Int("user_id", user.ID))
	return c.Status(fiber.StatusCreated).JSON(user)
}
