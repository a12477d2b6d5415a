package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/tripledger/infra"
	infraeventbus "github.com/amirasaad/tripledger/infra/eventbus"
	"github.com/amirasaad/tripledger/pkg/app"
	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/amirasaad/tripledger/pkg/service/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const cliSecret = "cli-test-secret"

type CLITestSuite struct {
	suite.Suite
	cfg *config.App
	app *app.App
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

func (s *CLITestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := infra.NewDBConnection(&config.DB{Url: "sqlite://file::memory:"}, "test")
	s.Require().NoError(err)
	s.Require().NoError(infra.AutoMigrate(db))
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = sqlDB.Close() })

	s.cfg = &config.App{
		Auth: &config.Auth{
			Jwt:           &config.Jwt{Secret: cliSecret, Expiry: time.Hour},
			InternalToken: "tok",
		},
		Ledger: &config.Ledger{DefaultCurrency: "INR", TransitionAttempts: 4},
	}
	// No DB handle: each command closes its app, the pool outlives them.
	s.app = app.New(&app.Deps{
		Uow:      infra.NewUoW(db),
		EventBus: infraeventbus.NewWithMemory(logger),
		Logger:   logger,
	}, s.cfg)
}

func (s *CLITestSuite) run(stdin string, args ...string) (string, error) {
	root := NewRootCommand(
		func(string) (*config.App, error) { return s.cfg, nil },
		func(*config.App) (*app.App, error) { return s.app, nil },
	)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CLITestSuite) seed(orderID, email string, paid bool) *purchase.Purchase {
	// identifiers are minted per millisecond
	time.Sleep(2 * time.Millisecond)
	ctx := context.Background()
	travellers := 2
	price := decimal.NewFromInt(50)
	amount := decimal.NewFromInt(100)
	p, _, err := s.app.PurchaseService.Create(ctx, purchase.Draft{
		GatewayOrderID: orderID,
		Actor:          purchase.Actor{FullName: "Ravi", Email: email, Phone: "1"},
		Subject:        purchase.Subject{PackageSlug: "ooty", PackageTitle: "Ooty Hills"},
		Travellers:     &travellers,
		UnitPrice:      &price,
		UnitLabel:      "per person",
		Amount:         &amount,
	})
	s.Require().NoError(err)
	if paid {
		p, err = s.app.PurchaseService.Confirm(ctx, purchase.ByGatewayOrderID(orderID), purchase.Confirm{
			GatewayPaymentID: "pay_" + orderID,
			GatewaySignature: "sig",
		})
		s.Require().NoError(err)
	}
	return p
}

func (s *CLITestSuite) TestList() {
	first := s.seed("gw_a", "a@x.com", false)
	second := s.seed("gw_b", "b@x.com", true)

	out, err := s.run("", "list")
	s.Require().NoError(err)
	s.Contains(out, first.InternalOrderID)
	s.Contains(out, second.InternalOrderID)
	s.Contains(out, "100.00 INR")

	out, err = s.run("", "list", "--status", "paid")
	s.Require().NoError(err)
	s.NotContains(out, first.InternalOrderID)
	s.Contains(out, second.InternalOrderID)

	out, err = s.run("", "list", "--email", "A@X.com", "--json")
	s.Require().NoError(err)
	var ps []purchase.Purchase
	s.Require().NoError(json.Unmarshal([]byte(out), &ps))
	s.Require().Len(ps, 1)
	s.Equal("gw_a", ps[0].GatewayOrderID)

	_, err = s.run("", "list", "--status", "pending")
	s.Error(err)
}

func (s *CLITestSuite) TestShow() {
	p := s.seed("gw_show", "a@x.com", true)

	out, err := s.run("", "show", "gw_show")
	s.Require().NoError(err)
	s.Contains(out, p.ReceiptNumber)
	s.Contains(out, "pay_gw_show")
	s.Contains(out, "Ooty Hills (ooty)")

	out, err = s.run("", "show", p.ID.String(), "--json")
	s.Require().NoError(err)
	var got purchase.Purchase
	s.Require().NoError(json.Unmarshal([]byte(out), &got))
	s.Equal(purchase.StatusPaid, got.Status)

	_, err = s.run("", "show", "gw_missing")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *CLITestSuite) TestRefund() {
	s.seed("gw_refund", "a@x.com", true)

	_, err := s.run("", "refund", "gw_refund", "--amount", "abc", "--yes")
	s.Error(err)

	out, err := s.run("", "refund", "gw_refund", "--amount", "40", "--refund-id", "rf_cli", "--notes", "goodwill", "--yes")
	s.Require().NoError(err)
	s.Contains(out, "Refunded 40.00 INR")

	stored, err := s.app.PurchaseService.Get(context.Background(), purchase.ByGatewayOrderID("gw_refund"))
	s.Require().NoError(err)
	s.Equal(purchase.StatusRefunded, stored.Status)
	s.Equal("rf_cli", stored.Refund.RefundID)
	s.Equal("goodwill", stored.Notes)

	out, err = s.run("", "refund", "gw_refund", "--yes")
	s.Require().NoError(err)
	s.Contains(out, "No change")
}

func (s *CLITestSuite) TestRefundUnpaidIsNoChange() {
	s.seed("gw_unpaid", "a@x.com", false)

	out, err := s.run("", "refund", "gw_unpaid", "--yes")
	s.Require().NoError(err)
	s.Contains(out, "No change: purchase is created")
}

func (s *CLITestSuite) setTerminal(on bool) {
	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return on }
	s.T().Cleanup(func() { stdinIsTerminal = prev })
}

func (s *CLITestSuite) TestRefundNeedsConfirmation() {
	s.seed("gw_confirm", "a@x.com", true)

	s.setTerminal(false)
	_, err := s.run("y\n", "refund", "gw_confirm")
	s.Require().Error(err)
	s.Contains(err.Error(), "--yes")

	s.setTerminal(true)
	out, err := s.run("n\n", "refund", "gw_confirm")
	s.ErrorIs(err, errNotConfirmed)
	s.Contains(out, "Refund 100.00 INR of")

	out, err = s.run("y\n", "refund", "gw_confirm")
	s.Require().NoError(err)
	s.Contains(out, "Refunded 100.00 INR")
}

func (s *CLITestSuite) TestToken() {
	out, err := s.run("", "token", "--user-id", "u42", "--email", "ops@x.com", "--admin")
	s.Require().NoError(err)

	raw := strings.TrimSpace(out)
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte(cliSecret), nil })
	s.Require().NoError(err)
	actor, err := auth.NewWithJWT(s.cfg.Auth.Jwt, slog.Default()).CurrentActor(token)
	s.Require().NoError(err)
	s.Equal("u42", actor.UserID)
	s.True(actor.IsAdmin())

	_, err = s.run("", "token")
	s.Error(err)
}
