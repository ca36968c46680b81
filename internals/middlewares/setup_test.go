package middlewares

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"tutorku_backend/internals/configs"
)

func TestRequestContext(t *testing.T) {
	app := fiber.New()
	app.Use(RequestContext(time.Second))
	app.Get("/", func(c *fiber.Ctx) error {
		if _, ok := c.UserContext().Deadline(); !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "no deadline")
		}
		return c.SendString(c.Locals("reqid").(string))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK || resp.Header.Get("X-Request-ID") != "req-123" {
		t.Fatalf("status = %d, X-Request-ID = %q", resp.StatusCode, resp.Header.Get("X-Request-ID"))
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/", nil))
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("request id not generated")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	app := fiber.New()
	SetupMiddlewares(app, configs.Config{AllowOrigins: "http://localhost:5173"})
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCodeRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Use(CodeRateLimiter())
	app.Post("/join", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/join", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 10; i++ {
		resp, _ := app.Test(httptest.NewRequest("POST", "/join", nil))
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
	resp, _ := app.Test(httptest.NewRequest("POST", "/join", nil))
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	// GET tidak dihitung
	resp, _ = app.Test(httptest.NewRequest("GET", "/join", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
}
