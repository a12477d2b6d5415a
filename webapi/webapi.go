// Package webapi assembles the HTTP surface of the purchase ledger.
// Route groups live in sub-packages:
// - purchase: checkout recording, gateway callbacks and read views
// - common: response envelope, problem details and request binding
package webapi

import (
	"errors"
	"strings"

	_ "github.com/amirasaad/tripledger/cmd/server/swagger"
	"github.com/amirasaad/tripledger/pkg/app"
	"github.com/amirasaad/tripledger/webapi/common"
	purchaseweb "github.com/amirasaad/tripledger/webapi/purchase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

// SetupApp builds the fiber app with middleware and every route registered.
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return common.ProblemDetailsJSON(c, fe.Message, err, fe.Code)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})
	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		WithCredentials:      true,
		PersistAuthorization: true,
	}))

	if rl := a.Config.RateLimit; rl != nil && rl.MaxRequests > 0 {
		fiberApp.Use(limiter.New(limiter.Config{
			Max:          rl.MaxRequests,
			Expiration:   rl.Window,
			KeyGenerator: clientKey,
			LimitReached: func(c *fiber.Ctx) error {
				return common.ProblemDetailsJSON(
					c,
					"Too Many Requests",
					errors.New("rate limit exceeded"),
					fiber.StatusTooManyRequests,
				)
			},
		}))
	}
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Trip ledger is running")
	})
	fiberApp.Get("/healthz", func(c *fiber.Ctx) error {
		if err := a.Ping(c.UserContext()); err != nil {
			return common.ProblemDetailsJSON(
				c,
				"Service Unavailable",
				err,
				fiber.StatusServiceUnavailable,
			)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "ok", nil)
	})

	purchaseweb.Routes(fiberApp, a.PurchaseService, a.AuthService, a.Config)
	return fiberApp
}

// clientKey prefers the first X-Forwarded-For hop, then X-Real-IP, so
// clients behind a proxy are limited individually.
func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
