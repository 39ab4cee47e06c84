package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/utils/response"
)

// MakeHTTPHandleFunc binds a store-aware handler to a fiber handler. Errors
// that escape the handler are logged and answered with a generic 500.
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			log.Errorw("Unhandled handler error", "path", c.Path(), "error", err)
			return response.InternalServerError(c, "")
		}
		return nil
	}
}
