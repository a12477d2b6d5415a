// Package testutils runs the HTTP surface against a real Postgres database
// started with Testcontainers.
package testutils

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/amirasaad/tripledger/infra"
	infraeventbus "github.com/amirasaad/tripledger/infra/eventbus"
	"github.com/amirasaad/tripledger/pkg/app"
	"github.com/amirasaad/tripledger/pkg/config"
	authsvc "github.com/amirasaad/tripledger/pkg/service/auth"
	"github.com/amirasaad/tripledger/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// InternalToken is the shared service token the suite configures.
const InternalToken = "e2e-internal-token"

// E2ETestSuite provides a test suite with a real Postgres database.
type E2ETestSuite struct {
	suite.Suite
	pgContainer *tcpostgres.PostgresContainer
	App         *app.App
	app         *fiber.App
	cfg         *config.App
}

// Envelope decodes both the success envelope and problem details.
type Envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func (s *E2ETestSuite) startPostgresContainer(ctx context.Context) (*tcpostgres.PostgresContainer, error) {
	return tcpostgres.Run(
		ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("tripledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second),
		),
	)
}

// SetupSuite starts Postgres, applies the SQL migrations and builds the app
// the same way the server does.
func (s *E2ETestSuite) SetupSuite() {
	ctx := context.Background()

	pg, err := s.startPostgresContainer(ctx)
	s.Require().NoError(err)
	s.pgContainer = pg

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.cfg = &config.App{
		Env: "test",
		DB:  &config.DB{Url: dsn, Migrate: true},
		Auth: &config.Auth{
			Jwt:            &config.Jwt{Secret: "e2e-secret", Expiry: time.Hour},
			InternalToken:  InternalToken,
			InternalHeader: "X-Internal-Token",
		},
		Ledger: &config.Ledger{DefaultCurrency: "INR", TransitionAttempts: 4},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := infra.NewDBConnection(s.cfg.DB, s.cfg.Env)
	s.Require().NoError(err)
	s.Require().NoError(infra.RunMigrations(db, logger))
	sqlDB, err := db.DB()
	s.Require().NoError(err)

	s.App = app.New(&app.Deps{
		Uow:      infra.NewUoW(db),
		EventBus: infraeventbus.NewWithMemory(logger),
		DB:       sqlDB,
		Logger:   logger,
	}, s.cfg)
	s.app = webapi.SetupApp(s.App)
}

// TearDownSuite releases the app and the container.
func (s *E2ETestSuite) TearDownSuite() {
	if s.App != nil {
		_ = s.App.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(context.Background())
	}
}

// MakeRequest sends a request through the fiber app and decodes the body.
func (s *E2ETestSuite) MakeRequest(method, path, body string, headers map[string]string) (*http.Response, Envelope) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	var env Envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

// Internal sends a request carrying the internal service token.
func (s *E2ETestSuite) Internal(method, path, body string) (*http.Response, Envelope) {
	return s.MakeRequest(method, path, body, map[string]string{"X-Internal-Token": InternalToken})
}

// Bearer returns an Authorization header for the actor.
func (s *E2ETestSuite) Bearer(a authsvc.Actor) map[string]string {
	token, err := s.App.AuthService.GenerateToken(context.Background(), a)
	s.Require().NoError(err)
	return map[string]string{"Authorization": "Bearer " + token}
}

// UniqueOrderID returns a gateway order id no other test uses.
func UniqueOrderID() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
