package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/database"
	"github.com/studylane/agency-api/utils/response"
)

// HandleCheckHealth reports process and database liveness
func HandleCheckHealth(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.HealthCheck(); err != nil {
			return response.ServiceUnavailable(c, "Database unavailable")
		}
		return response.Success(c, fiber.Map{"status": "ok"})
	}
}
