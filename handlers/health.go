package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/utils/response"
)

// HandleWelcome answers the root route
func HandleWelcome(c *fiber.Ctx) error {
	return response.SuccessWithMessage(c, "Welcome to the University Explorer API", fiber.Map{
		"version": "v1",
		"docs":    "/api/v1",
	})
}

// HandleCheckHealth pings the database
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		log.Warnw("Health check failed", "error", err)
		return response.ServiceUnavailable(c, "Database unavailable")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
