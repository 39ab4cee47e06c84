package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	server := NewAPIServer(":0")
	app := server.GetEngine()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("pq: password authentication failed")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	tests := []struct {
		target   string
		status   int
		contains string
		excludes string
	}{
		{"/boom", fiber.StatusInternalServerError, "INTERNAL_ERROR", "password"},
		{"/teapot", fiber.StatusTeapot, "short and stout", ""},
		{"/missing", fiber.StatusNotFound, "NOT_FOUND", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))
			assert.Contains(t, string(body), tt.contains)
			if tt.excludes != "" {
				assert.NotContains(t, string(body), tt.excludes)
			}
		})
	}
}
