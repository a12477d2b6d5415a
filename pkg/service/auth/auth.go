// Package auth turns bearer tokens into ledger actors and mints tokens for
// development and operator tooling. Credential checks live with the
// storefront's identity service.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Role of an authenticated caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the opaque identity handed to the ledger. Guests have an email
// but no user id.
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the actor may read every purchase.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type Strategy interface {
	GenerateToken(ctx context.Context, a Actor) (string, error)
	ActorFromToken(token *jwt.Token) (Actor, error)
}

type Service struct {
	strategy Strategy
	logger   *slog.Logger
}

func New(strategy Strategy, logger *slog.Logger) *Service {
	return &Service{strategy: strategy, logger: logger}
}

func NewWithJWT(cfg *config.Jwt, logger *slog.Logger) *Service {
	return New(NewJWTStrategy(cfg, logger), logger)
}

// CurrentActor extracts the actor from a verified token.
func (s *Service) CurrentActor(token *jwt.Token) (Actor, error) {
	a, err := s.strategy.ActorFromToken(token)
	if err != nil {
		s.logger.Warn("CurrentActor failed", "error", err)
		return Actor{}, err
	}
	return a, nil
}

func (s *Service) GenerateToken(ctx context.Context, a Actor) (string, error) {
	log := s.logger.With("userID", a.UserID, "role", a.Role)
	token, err := s.strategy.GenerateToken(ctx, a)
	if err != nil {
		log.Error("GenerateToken failed", "error", err)
		return "", err
	}
	log.Debug("GenerateToken successful")
	return token, nil
}

// JWTStrategy signs and reads HS256 tokens carrying user_id, email and role claims.
type JWTStrategy struct {
	cfg    *config.Jwt
	logger *slog.Logger
	now    func() time.Time
}

func NewJWTStrategy(cfg *config.Jwt, logger *slog.Logger) *JWTStrategy {
	return &JWTStrategy{cfg: cfg, logger: logger, now: time.Now}
}

func (s *JWTStrategy) GenerateToken(ctx context.Context, a Actor) (string, error) {
	if a.UserID == "" && a.Email == "" {
		return "", fmt.Errorf("%w: token needs a user id or email", domain.ErrValidation)
	}
	role := a.Role
	if role == "" {
		role = RoleUser
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": a.UserID,
		"email":   strings.ToLower(a.Email),
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(s.cfg.Expiry).Unix(),
	})
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *JWTStrategy) ActorFromToken(token *jwt.Token) (Actor, error) {
	if token == nil || !token.Valid {
		return Actor{}, domain.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, domain.ErrUnauthorized
	}
	a := Actor{Role: RoleUser}
	if v, ok := claims["user_id"].(string); ok {
		a.UserID = strings.TrimSpace(v)
	}
	if v, ok := claims["email"].(string); ok {
		a.Email = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := claims["role"].(string); ok && Role(v) == RoleAdmin {
		a.Role = RoleAdmin
	}
	return a, nil
}
