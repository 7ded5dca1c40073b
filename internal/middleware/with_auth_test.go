package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pcos-screening-api/internal/middleware"
)

func TestWithAuthPatientRole(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(10))
		c.Locals("user_role", "Patient")
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, middleware.AuthOptions{Role: middleware.AuthRolePatient}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWithAuthPatientRoleDenied(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(10))
		c.Locals("user_role", "guest")
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, middleware.AuthOptions{Role: middleware.AuthRolePatient}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWithAuthAdminAllowsClinician(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "clinician")
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithAuthAnyRequiresUserByDefault(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{Role: middleware.AuthRoleAny}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthAnyAllowsAnonymousWhenOptedIn(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{Role: middleware.AuthRoleAny, AllowAnonymous: true}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithAuthAnyAcceptsAuthenticatedUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(4))
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestWithAuthAdminRejectsPatient(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(3))
		c.Locals("user_role", "patient")
		return c.Next()
	})
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func perform(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
