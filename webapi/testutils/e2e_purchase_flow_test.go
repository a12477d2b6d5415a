//go:build integration

package testutils

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	authsvc "github.com/amirasaad/tripledger/pkg/service/auth"
	purchaseweb "github.com/amirasaad/tripledger/webapi/purchase"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type PurchaseFlowTestSuite struct {
	E2ETestSuite
}

func TestPurchaseFlowTestSuite(t *testing.T) {
	suite.Run(t, new(PurchaseFlowTestSuite))
}

func checkoutBody(orderID, email string) string {
	return fmt.Sprintf(`{
		"userId": "u_%[1]s",
		"fullName": "Asha Rao",
		"email": %[2]q,
		"phone": "+91 98450 00000",
		"packageSlug": "kerala-backwaters",
		"packageTitle": "Kerala Backwaters",
		"travelDate": "2026-12-20",
		"travellers": 3,
		"unitPrice": 12000,
		"unitLabel": "per person",
		"amount": 36000,
		"gatewayOrderId": %[1]q
	}`, orderID, email)
}

func (s *PurchaseFlowTestSuite) decode(env Envelope) purchaseweb.PurchaseResponse {
	var p purchaseweb.PurchaseResponse
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	return p
}

func (s *PurchaseFlowTestSuite) TestFailedThenPaidThenRefunded() {
	orderID := UniqueOrderID()

	resp, env := s.Internal(fiber.MethodPost, "/purchases", checkoutBody(orderID, "Asha@Example.com"))
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
	created := s.decode(env)
	s.Equal("asha@example.com", created.Actor.Email)

	resp, env = s.Internal(fiber.MethodPost, "/purchases/mark-failed",
		fmt.Sprintf(`{"gatewayOrderId":%q,"failureReason":"bank declined","failureCode":"BAD_REQUEST_ERROR"}`, orderID))
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("failed", string(s.decode(env).Status))

	resp, env = s.Internal(fiber.MethodPost, "/purchases/mark-paid",
		fmt.Sprintf(`{"purchaseId":%q,"gatewayPaymentId":"pay_e2e","gatewaySignature":"sig_e2e","paymentMethod":"card"}`, created.ID))
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	paid := s.decode(env)
	s.Equal("paid", string(paid.Status))
	s.Empty(paid.FailureReason)
	s.NotNil(paid.FailedAt)

	resp, env = s.Internal(fiber.MethodPost, "/purchases/mark-refunded",
		fmt.Sprintf(`{"gatewayOrderId":%q,"refundId":"rf_e2e","refundedAmount":1000}`, orderID))
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	refunded := s.decode(env)
	s.Equal("refunded", string(refunded.Status))
	s.Equal("1000", refunded.Refund.RefundedAmount.String())

	// refunded is terminal
	resp, env = s.Internal(fiber.MethodPost, "/purchases/mark-paid",
		fmt.Sprintf(`{"gatewayOrderId":%q,"gatewayPaymentId":"pay_late","gatewaySignature":"sig"}`, orderID))
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("refunded", string(s.decode(env).Status))

	admin := s.Bearer(authsvc.Actor{UserID: "ops", Role: authsvc.RoleAdmin})
	resp, env = s.MakeRequest(fiber.MethodGet, "/purchases/"+created.ID.String(), "", admin)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("pay_e2e", s.decode(env).GatewayPaymentID)
}

func (s *PurchaseFlowTestSuite) TestConcurrentCallbacksApplyOnce() {
	orderID := UniqueOrderID()
	resp, _ := s.Internal(fiber.MethodPost, "/purchases", checkoutBody(orderID, "race@example.com"))
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		path := "/purchases/mark-paid"
		body := fmt.Sprintf(`{"gatewayOrderId":%q,"gatewayPaymentId":"pay_%d","gatewaySignature":"sig"}`, orderID, i)
		if i%2 == 1 {
			path = "/purchases/mark-failed"
			body = fmt.Sprintf(`{"gatewayOrderId":%q,"failureReason":"timeout"}`, orderID)
		}
		g.Go(func() error {
			req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Internal-Token", InternalToken)
			resp, err := s.app.Test(req, -1)
			if err != nil {
				return err
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != fiber.StatusOK {
				return fmt.Errorf("%s: status %d", path, resp.StatusCode)
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	admin := s.Bearer(authsvc.Actor{UserID: "ops", Role: authsvc.RoleAdmin})
	resp, env := s.MakeRequest(fiber.MethodGet, "/purchases/"+orderID, "", admin)
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	s.Equal("paid", string(s.decode(env).Status), "a confirmation always wins over failures")
}

func (s *PurchaseFlowTestSuite) TestMyPurchasesMatchesByEmail() {
	orderID := UniqueOrderID()
	email := orderID + "@example.com"
	resp, _ := s.Internal(fiber.MethodPost, "/purchases", checkoutBody(orderID, email))
	s.Require().Equal(fiber.StatusCreated, resp.StatusCode)

	resp, env := s.MakeRequest(fiber.MethodGet, "/purchases/my", "",
		s.Bearer(authsvc.Actor{UserID: "someone-else", Email: email}))
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	var mine []purchaseweb.PurchaseResponse
	s.Require().NoError(json.Unmarshal(env.Data, &mine))
	s.Require().Len(mine, 1)
	s.Equal(orderID, mine[0].GatewayOrderID)
}

func (s *PurchaseFlowTestSuite) TestHealthz() {
	resp, _ := s.MakeRequest(fiber.MethodGet, "/healthz", "", nil)
	s.Equal(fiber.StatusOK, resp.StatusCode)
}
