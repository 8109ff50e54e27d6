package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exampilot-api/internal/middleware"
)

func newCorrelationApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.CorrelationIDFromContext(c.UserContext()))
	})
	return app
}

func correlationFor(t *testing.T, headers map[string]string) (string, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := newCorrelationApp().Test(req, -1)
	require.NoError(t, err)

	body := make([]byte, 256)
	n, _ := resp.Body.Read(body)
	return resp.Header.Get("X-Correlation-ID"), string(body[:n])
}

func TestCorrelationIDEchoesCallerValue(t *testing.T) {
	header, fromContext := correlationFor(t, map[string]string{"X-Correlation-ID": "req-42"})
	require.Equal(t, "req-42", header)
	require.Equal(t, "req-42", fromContext)

	header, _ = correlationFor(t, map[string]string{"X-Request-ID": "upstream-7"})
	require.Equal(t, "upstream-7", header)
}

func TestCorrelationIDReplacesUnusableValues(t *testing.T) {
	for _, value := range []string{"", "has space", strings.Repeat("a", 200)} {
		header, _ := correlationFor(t, map[string]string{"X-Correlation-ID": value})
		_, err := uuid.Parse(header)
		require.NoError(t, err, "value %q", value)
	}
}
