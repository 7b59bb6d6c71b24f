package middleware

import (
	"encoding/base64"
	"errors"
	"strings"

	"taskboard/internal/auth"
	"taskboard/internal/metrics"
	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const userLocalKey = "user"

// UseCredentials resolves HTTP Basic credentials through authn and stores
// the matching user in the request locals. A missing or malformed header is
// 401; credentials matching no user are 400.
func UseCredentials(authn auth.Authenticator, log *logger.Loggers) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, password, ok := basicCredentials(c.Get(fiber.HeaderAuthorization))
		if !ok {
			metrics.AuthFailuresTotal.WithLabelValues("missing").Inc()
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="taskboard"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Not authenticated",
				"success": false,
				"status":  fiber.StatusUnauthorized,
			})
		}

		user, err := authn.Authenticate(c.UserContext(), username, password)
		if errors.Is(err, models.ErrInvalidCredentials) {
			metrics.AuthFailuresTotal.WithLabelValues("invalid").Inc()
			log.Security.Warn("Unknown credentials",
				zap.String("username", username),
				zap.String("url", c.OriginalURL()),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "User is not registered",
				"success": false,
				"status":  fiber.StatusBadRequest,
			})
		}
		if err != nil {
			log.Error.Error("Error authenticating user", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Error authenticating user",
				"success": false,
				"status":  fiber.StatusInternalServerError,
			})
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by UseCredentials, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}

func basicCredentials(header string) (username, password string, ok bool) {
	scheme, encoded, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}
