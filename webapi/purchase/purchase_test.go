package purchase_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/tripledger/infra"
	infraeventbus "github.com/amirasaad/tripledger/infra/eventbus"
	"github.com/amirasaad/tripledger/pkg/config"
	authsvc "github.com/amirasaad/tripledger/pkg/service/auth"
	purchasesvc "github.com/amirasaad/tripledger/pkg/service/purchase"
	"github.com/amirasaad/tripledger/webapi/common"
	purchaseweb "github.com/amirasaad/tripledger/webapi/purchase"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

const internalToken = "internal-test-token"

type PurchaseHandlersTestSuite struct {
	suite.Suite
	app     *fiber.App
	cfg     *config.App
	authSvc *authsvc.Service
}

func TestPurchaseHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(PurchaseHandlersTestSuite))
}

func (s *PurchaseHandlersTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := infra.NewDBConnection(&config.DB{Url: "sqlite://file::memory:"}, "test")
	s.Require().NoError(err)
	s.Require().NoError(infra.AutoMigrate(db))
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s.cfg = &config.App{
		Auth: &config.Auth{
			Jwt:            &config.Jwt{Secret: "handler-test-secret", Expiry: time.Hour},
			InternalToken:  internalToken,
			InternalHeader: "X-Internal-Token",
		},
	}
	s.authSvc = authsvc.NewWithJWT(s.cfg.Auth.Jwt, logger)
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
	ledger := purchasesvc.New(infra.NewUoW(db), infraeventbus.NewWithMemory(logger), logger,
		purchasesvc.WithClock(clock))

	s.app = fiber.New()
	purchaseweb.Routes(s.app, ledger, s.authSvc, s.cfg)
}

type envelope struct {
	common.Response
	Data   json.RawMessage `json:"data"`
	Detail string          `json:"detail"`
}

func (s *PurchaseHandlersTestSuite) do(method, path, body string, headers map[string]string) (*http.Response, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck
	var env envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (s *PurchaseHandlersTestSuite) internal(method, path, body string) (*http.Response, envelope) {
	return s.do(method, path, body, map[string]string{"X-Internal-Token": internalToken})
}

func (s *PurchaseHandlersTestSuite) bearer(a authsvc.Actor) map[string]string {
	raw, err := s.authSvc.GenerateToken(context.Background(), a)
	s.Require().NoError(err)
	return map[string]string{"Authorization": "Bearer " + raw}
}

func (s *PurchaseHandlersTestSuite) purchaseOf(env envelope) purchaseweb.PurchaseResponse {
	var p purchaseweb.PurchaseResponse
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	return p
}

const checkout = `{
	"userId": "u1",
	"fullName": "A",
	"email": "a@x.com",
	"phone": "999",
	"packageSlug": "goa-beach",
	"packageTitle": "Goa Beach Escape",
	"travelDate": "2026-12-20",
	"travellers": 2,
	"unitPrice": 7500,
	"unitLabel": "per person",
	"amount": 15000,
	"gatewayOrderId": "gw_1"
}`

func (s *PurchaseHandlersTestSuite) TestCreateIsIdempotent() {
	resp, env := s.internal(fiber.MethodPost, "/purchases", checkout)
	s.Equal(fiber.StatusCreated, resp.StatusCode)
	first := s.purchaseOf(env)
	s.Equal("created", string(first.Status))
	s.Equal("INR", first.Pricing.Currency)
	s.Require().NotNil(first.Subject.TravelDate)

	resp, env = s.internal(fiber.MethodPost, "/purchases", checkout)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal(first.InternalOrderID, s.purchaseOf(env).InternalOrderID)
}

func (s *PurchaseHandlersTestSuite) TestCreateRequiresInternalToken() {
	resp, _ := s.do(fiber.MethodPost, "/purchases", checkout, nil)
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(fiber.MethodPost, "/purchases", checkout, s.bearer(authsvc.Actor{UserID: "u1"}))
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func (s *PurchaseHandlersTestSuite) TestCreateMissingEmail() {
	body := strings.Replace(checkout, `"email": "a@x.com",`, "", 1)

	resp, env := s.internal(fiber.MethodPost, "/purchases", body)

	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
	s.Contains(env.Detail, "email")
}

func (s *PurchaseHandlersTestSuite) TestCreateInvalidTravelDate() {
	body := strings.Replace(checkout, "2026-12-20", "next week", 1)

	resp, _ := s.internal(fiber.MethodPost, "/purchases", body)

	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *PurchaseHandlersTestSuite) TestLifecycle() {
	resp, env := s.internal(fiber.MethodPost, "/purchases", checkout)
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	created := s.purchaseOf(env)

	resp, env = s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_1","gatewayPaymentId":"pay_1","gatewaySignature":"sig_1","paymentMethod":"upi"}`)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	paid := s.purchaseOf(env)
	s.Equal("paid", string(paid.Status))
	s.Equal("pay_1", paid.GatewayPaymentID)
	s.Require().NotNil(paid.PaidAt)

	resp, env = s.internal(fiber.MethodPost, "/purchases/mark-failed",
		`{"purchaseId":"`+created.ID.String()+`","failureReason":"timeout"}`)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	still := s.purchaseOf(env)
	s.Equal("paid", string(still.Status))
	s.Nil(still.FailedAt)

	resp, env = s.internal(fiber.MethodPost, "/purchases/mark-refunded",
		`{"gatewayOrderId":"gw_1","refundId":"rf_1","refundedAmount":"not-a-number","notes":"customer cancelled"}`)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	refunded := s.purchaseOf(env)
	s.Equal("refunded", string(refunded.Status))
	s.Require().NotNil(refunded.Refund)
	s.Equal("15000", refunded.Refund.RefundedAmount.String())
	s.Equal("customer cancelled", refunded.Notes)
}

func (s *PurchaseHandlersTestSuite) TestPartialRefund() {
	s.internal(fiber.MethodPost, "/purchases", checkout)
	s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_1","gatewayPaymentId":"pay_1","gatewaySignature":"sig_1"}`)

	resp, env := s.internal(fiber.MethodPost, "/purchases/mark-refunded",
		`{"gatewayOrderId":"gw_1","refundedAmount":2500.5}`)

	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("2500.5", s.purchaseOf(env).Refund.RefundedAmount.String())
}

func (s *PurchaseHandlersTestSuite) TestMarkPaidErrors() {
	resp, _ := s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_missing","gatewayPaymentId":"pay_1","gatewaySignature":"sig_1"}`)
	s.Equal(fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_1","gatewayPaymentId":"pay_1"}`)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayPaymentId":"pay_1","gatewaySignature":"sig_1"}`)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"purchaseId":"not-a-uuid","gatewayPaymentId":"pay_1","gatewaySignature":"sig_1"}`)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *PurchaseHandlersTestSuite) TestReusedGatewayIDsAreServerErrors() {
	other := strings.Replace(checkout, `"gw_1"`, `"gw_2"`, 1)
	s.internal(fiber.MethodPost, "/purchases", checkout)
	s.internal(fiber.MethodPost, "/purchases", other)
	resp, _ := s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_1","gatewayPaymentId":"pay_1","gatewaySignature":"sig_1"}`)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	resp, env := s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_2","gatewayPaymentId":"pay_1","gatewaySignature":"sig_2"}`)
	s.Equal(fiber.StatusInternalServerError, resp.StatusCode)
	s.NotContains(env.Detail, "exists")

	resp, _ = s.internal(fiber.MethodPost, "/purchases/mark-paid",
		`{"gatewayOrderId":"gw_2","gatewayPaymentId":"pay_2","gatewaySignature":"sig_2"}`)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	resp, _ = s.internal(fiber.MethodPost, "/purchases/mark-refunded", `{"gatewayOrderId":"gw_1","refundId":"rf_1"}`)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)

	resp, _ = s.internal(fiber.MethodPost, "/purchases/mark-refunded", `{"gatewayOrderId":"gw_2","refundId":"rf_1"}`)
	s.Equal(fiber.StatusInternalServerError, resp.StatusCode)

	resp, env = s.do(fiber.MethodGet, "/purchases/gw_2", "", s.bearer(authsvc.Actor{UserID: "ops", Role: authsvc.RoleAdmin}))
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("paid", string(s.purchaseOf(env).Status))
}

func (s *PurchaseHandlersTestSuite) TestReadRoutes() {
	s.internal(fiber.MethodPost, "/purchases", checkout)
	other := strings.NewReplacer(`"gw_1"`, `"gw_2"`, `"u1"`, `"u2"`, "a@x.com", "b@x.com").Replace(checkout)
	s.internal(fiber.MethodPost, "/purchases", other)

	user := s.bearer(authsvc.Actor{UserID: "u1", Email: "a@x.com"})
	admin := s.bearer(authsvc.Actor{UserID: "ops", Role: authsvc.RoleAdmin})

	resp, _ := s.do(fiber.MethodGet, "/purchases", "", user)
	s.Equal(fiber.StatusForbidden, resp.StatusCode)

	resp, env := s.do(fiber.MethodGet, "/purchases", "", admin)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var all []purchaseweb.PurchaseResponse
	s.Require().NoError(json.Unmarshal(env.Data, &all))
	s.Require().Len(all, 2)
	s.Equal("gw_2", all[0].GatewayOrderID)

	resp, env = s.do(fiber.MethodGet, "/purchases/my", "", user)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var mine []purchaseweb.PurchaseResponse
	s.Require().NoError(json.Unmarshal(env.Data, &mine))
	s.Require().Len(mine, 1)
	s.Equal("gw_1", mine[0].GatewayOrderID)

	resp, env = s.do(fiber.MethodGet, "/purchases/gw_2", "", admin)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("b@x.com", s.purchaseOf(env).Actor.Email)

	resp, _ = s.do(fiber.MethodGet, "/purchases/gw_404", "", admin)
	s.Equal(fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(fiber.MethodGet, "/purchases/my", "", nil)
	s.Equal(fiber.StatusBadRequest, resp.StatusCode, "missing bearer token")
}

func (s *PurchaseHandlersTestSuite) TestMyPurchasesWithoutIdentity() {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "user",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(s.cfg.Auth.Jwt.Secret))
	s.Require().NoError(err)

	resp, _ := s.do(fiber.MethodGet, "/purchases/my", "", map[string]string{"Authorization": "Bearer " + raw})

	s.Equal(fiber.StatusBadRequest, resp.StatusCode)
}
