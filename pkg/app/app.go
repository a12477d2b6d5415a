package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"

	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/amirasaad/tripledger/pkg/eventbus"
	"github.com/amirasaad/tripledger/pkg/repository"
	"github.com/amirasaad/tripledger/pkg/service/auth"
	"github.com/amirasaad/tripledger/pkg/service/purchase"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	DB       *sql.DB
	Logger   *slog.Logger
}

type App struct {
	Deps            *Deps
	Config          *config.App
	AuthService     *auth.Service
	PurchaseService *purchase.Service
}

func New(deps *Deps, cfg *config.App) *App {
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	app.AuthService = auth.NewWithJWT(cfg.Auth.Jwt, deps.Logger)

	opts := []purchase.Option{}
	if cfg.Ledger != nil {
		opts = append(opts,
			purchase.WithDefaultCurrency(cfg.Ledger.DefaultCurrency),
			purchase.WithTransitionAttempts(cfg.Ledger.TransitionAttempts),
		)
	}
	app.PurchaseService = purchase.New(deps.Uow, deps.EventBus, deps.Logger, opts...)
	return app
}

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error {
	if a.Deps.DB == nil {
		return errors.New("database not configured")
	}
	return a.Deps.DB.PingContext(ctx)
}

// Close releases the event bus consumers and the database pool.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.Deps.EventBus.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.Deps.DB != nil {
		errs = append(errs, a.Deps.DB.Close())
	}
	return errors.Join(errs...)
}
