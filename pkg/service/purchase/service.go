// Package purchase provides the reconciliation ledger: idempotent creation of
// purchase records and compare-and-apply lifecycle transitions driven by
// gateway and client callbacks.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/amirasaad/tripledger/pkg/domain/events"
	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/amirasaad/tripledger/pkg/eventbus"
	"github.com/amirasaad/tripledger/pkg/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrIdentifierCollision is returned when a freshly minted internal order
	// id or receipt number is already taken. Retrying mints new ones.
	ErrIdentifierCollision = errors.New("purchase identifier collision")
	// ErrContention is returned when concurrent writers kept winning the
	// conditional update for every attempt.
	ErrContention = errors.New("purchase transition contention")
)

const defaultTransitionAttempts = 4

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for timestamps and identifiers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultCurrency sets the currency assumed when a checkout names none.
func WithDefaultCurrency(code string) Option {
	return func(s *Service) {
		if code = strings.TrimSpace(code); code != "" {
			s.defaultCurrency = code
		}
	}
}

// WithTransitionAttempts bounds the re-read rounds of a transition.
func WithTransitionAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// Service is the purchase ledger.
type Service struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger

	now             func() time.Time
	defaultCurrency string
	attempts        int

	creates singleflight.Group
}

// New creates a ledger service. bus may be nil, in which case no events are
// published.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		uow:             uow,
		bus:             bus,
		logger:          logger,
		now:             time.Now,
		defaultCurrency: purchase.DefaultCurrency,
		attempts:        defaultTransitionAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type createOutcome struct {
	purchase *purchase.Purchase
	created  bool
}

// Create records a checkout attempt. When the gateway order id is already
// known the stored record is returned unchanged and created is false.
func (s *Service) Create(
	ctx context.Context,
	d purchase.Draft,
) (p *purchase.Purchase, created bool, err error) {
	if strings.TrimSpace(d.Currency) == "" {
		d.Currency = s.defaultCurrency
	}
	if err = d.Validate(); err != nil {
		return nil, false, err
	}
	log := s.logger.With("operation", "create", "gatewayOrderId", d.GatewayOrderID)

	// Only the caller whose function ran may report a fresh creation;
	// callers that joined it observe an existing record. The shared call
	// outlives any one caller's cancellation since all of them receive its
	// outcome.
	ran := false
	v, err, _ := s.creates.Do(d.GatewayOrderID, func() (any, error) {
		ran = true
		p, created, err := s.create(context.WithoutCancel(ctx), d, log)
		return createOutcome{purchase: p, created: created}, err
	})
	if err != nil {
		log.Error("create failed", "error", err)
		return nil, false, err
	}
	out := v.(createOutcome)
	return out.purchase, out.created && ran, nil
}

func (s *Service) create(
	ctx context.Context,
	d purchase.Draft,
	log *slog.Logger,
) (*purchase.Purchase, bool, error) {
	repo, err := s.uow.PurchaseRepository()
	if err != nil {
		return nil, false, err
	}
	key := purchase.ByGatewayOrderID(d.GatewayOrderID)

	existing, err := repo.Resolve(ctx, key)
	switch {
	case err == nil:
		log.Info("purchase already recorded", "purchaseId", existing.ID, "status", existing.Status)
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	now := s.now()
	p := purchase.New(d, purchase.MintIdentifiers(now), now)
	if expected := p.Pricing.UnitPrice.Mul(decimal.NewFromInt(int64(p.Pricing.Travellers))); !expected.Equal(p.Pricing.Amount) {
		log.Warn("amount differs from unit price times travellers",
			"amount", p.Pricing.Amount, "unitPrice", p.Pricing.UnitPrice, "travellers", p.Pricing.Travellers)
	}

	if err := repo.Create(ctx, p); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, false, err
		}
		// Either a concurrent create for the same gateway order won, or a
		// minted identifier clashed.
		existing, rerr := repo.Resolve(ctx, key)
		if rerr == nil {
			log.Info("concurrent create won", "purchaseId", existing.ID)
			return existing, false, nil
		}
		if !errors.Is(rerr, domain.ErrNotFound) {
			return nil, false, rerr
		}
		return nil, false, fmt.Errorf("create %s: %w", p.InternalOrderID, ErrIdentifierCollision)
	}

	log.Info("purchase created", "purchaseId", p.ID, "internalOrderId", p.InternalOrderID)
	s.emit(ctx, log, events.NewPurchaseCreated(p, now))
	return p, true, nil
}

// Confirm marks the purchase paid. It also overrides an earlier failure.
func (s *Service) Confirm(ctx context.Context, key purchase.ResolutionKey, c purchase.Confirm) (*purchase.Purchase, error) {
	return s.transition(ctx, key, c)
}

// Fail marks a created purchase failed.
func (s *Service) Fail(ctx context.Context, key purchase.ResolutionKey, f purchase.Fail) (*purchase.Purchase, error) {
	return s.transition(ctx, key, f)
}

// Refund marks a paid purchase refunded.
func (s *Service) Refund(ctx context.Context, key purchase.ResolutionKey, r purchase.MarkRefunded) (*purchase.Purchase, error) {
	return s.transition(ctx, key, r)
}

// transition is the only code path that changes a stored status. A
// transition that does not apply to the current status returns the record
// unchanged. When a concurrent writer wins the conditional update the record
// is re-read and the decision taken again.
func (s *Service) transition(
	ctx context.Context,
	key purchase.ResolutionKey,
	t purchase.Transition,
) (*purchase.Purchase, error) {
	if !key.Valid() {
		return nil, purchase.ErrInvalidKey
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With("operation", t.Name(), "key", key.String())

	repo, err := s.uow.PurchaseRepository()
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		current, err := repo.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		now := s.now()
		next, applies := purchase.Apply(current, t, now)
		if !applies {
			log.Info("transition ignored", "purchaseId", current.ID, "status", current.Status)
			return current, nil
		}

		ok, err := repo.Transition(ctx, next, current.Status)
		if err != nil {
			log.Error("transition failed", "purchaseId", current.ID, "error", err)
			return nil, err
		}
		if ok {
			log.Info("transition applied", "purchaseId", current.ID, "from", current.Status, "to", next.Status)
			if evt := events.NewTransitionEvent(current, next, now); evt != nil {
				s.emit(ctx, log, evt)
			}
			return next, nil
		}
		log.Debug("concurrent writer won; re-reading", "purchaseId", current.ID, "attempt", attempt)
	}
	return nil, fmt.Errorf("%s %s: %w", t.Name(), key, ErrContention)
}

// Get resolves one purchase.
func (s *Service) Get(ctx context.Context, key purchase.ResolutionKey) (*purchase.Purchase, error) {
	if !key.Valid() {
		return nil, purchase.ErrInvalidKey
	}
	repo, err := s.uow.PurchaseRepository()
	if err != nil {
		return nil, err
	}
	return repo.Resolve(ctx, key)
}

// ListAll returns every purchase, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*purchase.Purchase, error) {
	repo, err := s.uow.PurchaseRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListAll(ctx)
}

// ListMine returns the purchases of one actor, matched by user id or email.
func (s *Service) ListMine(ctx context.Context, userID, email string) ([]*purchase.Purchase, error) {
	if strings.TrimSpace(userID) == "" && strings.TrimSpace(email) == "" {
		return nil, &purchase.ValidationError{Field: "actor", Reason: "needs a user id or email"}
	}
	repo, err := s.uow.PurchaseRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByOwner(ctx, userID, email)
}

func (s *Service) emit(ctx context.Context, log *slog.Logger, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, evt); err != nil {
		log.Error("failed to publish event", "type", evt.Type(), "error", err)
	}
}
