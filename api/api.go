package api

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "University Explorer API",
			JSONEncoder:  json.Marshal,
			JSONDecoder:  json.Unmarshal,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			ErrorHandler: ErrorHandler,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Info("Starting API Server")
	log.Infof("Listening on %s", s.listenAddress)

	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// ErrorHandler renders errors that escape handlers in the standard envelope.
// Fiber errors keep their status; anything else is a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return response.NotFound(c, fe.Message)
		case fiber.StatusBadRequest:
			return response.BadRequest(c, fe.Message)
		case fiber.StatusTooManyRequests:
			return response.TooManyRequests(c, fe.Message)
		}
		return response.Error(c, fe.Code, fe.Message, "ERROR")
	}

	log.Errorw("Unhandled error", "path", c.Path(), "method", c.Method(), "error", err)
	return response.InternalServerError(c, "")
}
