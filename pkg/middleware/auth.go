// Package middleware holds the fiber middleware guarding ledger routes.
package middleware

import (
	"crypto/subtle"
	"errors"

	"github.com/amirasaad/tripledger/pkg/config"
	authsvc "github.com/amirasaad/tripledger/pkg/service/auth"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserContextKey is the fiber locals key holding the verified *jwt.Token.
const UserContextKey = "user"

// JwtProtected verifies the bearer token of end-user requests.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwt.SigningMethodHS256.Alg(),
			Key:    []byte(cfg.Secret),
		},
		ContextKey:   UserContextKey,
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return problem(c, fiber.StatusBadRequest, "Missing or malformed JWT", err.Error())
	}
	return problem(c, fiber.StatusUnauthorized, "Invalid or expired JWT", err.Error())
}

// InternalServiceToken admits sibling services presenting the shared token
// in the configured header.
func InternalServiceToken(cfg *config.Auth) fiber.Handler {
	header := cfg.InternalHeader
	if header == "" {
		header = "X-Internal-Token"
	}
	want := []byte(cfg.InternalToken)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get(header))
		if len(want) == 0 || len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			return problem(c, fiber.StatusUnauthorized, "Unauthorized", "missing or invalid internal service token")
		}
		return c.Next()
	}
}

// RequireAdmin must run after JwtProtected.
func RequireAdmin(authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := c.Locals(UserContextKey).(*jwt.Token)
		actor, err := authSvc.CurrentActor(token)
		if err != nil {
			return problem(c, fiber.StatusUnauthorized, "Unauthorized", "invalid token claims")
		}
		if !actor.IsAdmin() {
			return problem(c, fiber.StatusForbidden, "Forbidden", "admin role required")
		}
		return c.Next()
	}
}

// CurrentActor returns the actor of a request that passed JwtProtected.
func CurrentActor(c *fiber.Ctx, authSvc *authsvc.Service) (authsvc.Actor, error) {
	token, _ := c.Locals(UserContextKey).(*jwt.Token)
	return authSvc.CurrentActor(token)
}

func problem(c *fiber.Ctx, status int, title, detail string) error {
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": c.OriginalURL(),
	})
}
