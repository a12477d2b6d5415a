// Package purchase exposes the reconciliation ledger over HTTP. Mutating
// routes are for sibling services holding the internal token; read routes
// are for authenticated users and admins.
package purchase

import (
	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/amirasaad/tripledger/pkg/middleware"
	authsvc "github.com/amirasaad/tripledger/pkg/service/auth"
	purchasesvc "github.com/amirasaad/tripledger/pkg/service/purchase"
	"github.com/amirasaad/tripledger/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// Routes registers the purchase endpoints.
func Routes(
	app *fiber.App,
	ledger *purchasesvc.Service,
	authSvc *authsvc.Service,
	cfg *config.App,
) {
	internal := middleware.InternalServiceToken(cfg.Auth)
	app.Post("/purchases", internal, CreatePurchase(ledger))
	app.Post("/purchases/mark-paid", internal, MarkPaid(ledger))
	app.Post("/purchases/mark-failed", internal, MarkFailed(ledger))
	app.Post("/purchases/mark-refunded", internal, MarkRefunded(ledger))

	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	admin := middleware.RequireAdmin(authSvc)
	app.Get("/purchases", protected, admin, ListPurchases(ledger))
	app.Get("/purchases/my", protected, MyPurchases(ledger, authSvc))
	app.Get("/purchases/:id", protected, admin, GetPurchase(ledger))
}

// CreatePurchase records a checkout attempt.
// @Summary Record a checkout attempt
// @Description Creates the ledger entry for a gateway order. Repeating the call for the same gatewayOrderId returns the stored record unchanged.
// @Tags purchases
// @Accept json
// @Produce json
// @Param request body CreatePurchaseRequest true "Checkout snapshot"
// @Success 201 {object} common.Response
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /purchases [post]
// @Security InternalToken
func CreatePurchase(ledger *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CreatePurchaseRequest](c)
		if input == nil {
			return err
		}
		draft, err := input.toDraft()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid purchase", err)
		}
		p, created, err := ledger.Create(c.UserContext(), draft)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to record purchase", err)
		}
		if !created {
			return common.SuccessResponseJSON(c, fiber.StatusOK, "Purchase already recorded", NewPurchaseResponse(p))
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Purchase recorded", NewPurchaseResponse(p))
	}
}

// MarkPaid confirms a payment.
// @Summary Mark a purchase paid
// @Description Applies a gateway-verified payment. Also overrides an earlier failure. Repeats are no-ops.
// @Tags purchases
// @Accept json
// @Produce json
// @Param request body MarkPaidRequest true "Payment confirmation"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /purchases/mark-paid [post]
// @Security InternalToken
func MarkPaid(ledger *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[MarkPaidRequest](c)
		if input == nil {
			return err
		}
		key, err := input.key()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid purchase reference", err)
		}
		p, err := ledger.Confirm(c.UserContext(), key, purchase.Confirm{
			GatewayPaymentID: input.GatewayPaymentID,
			GatewaySignature: input.GatewaySignature,
			PaymentMethod:    input.PaymentMethod,
		})
		return respond(c, "Purchase not confirmed", p, err)
	}
}

// MarkFailed records a failed payment.
// @Summary Mark a purchase failed
// @Description Records a failure for a purchase that has not been paid. A paid purchase is returned unchanged.
// @Tags purchases
// @Accept json
// @Produce json
// @Param request body MarkFailedRequest true "Failure report"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /purchases/mark-failed [post]
// @Security InternalToken
func MarkFailed(ledger *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[MarkFailedRequest](c)
		if input == nil {
			return err
		}
		key, err := input.key()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid purchase reference", err)
		}
		p, err := ledger.Fail(c.UserContext(), key, purchase.Fail{
			Reason:           input.FailureReason,
			Code:             input.FailureCode,
			Source:           input.FailureSource,
			Step:             input.FailureStep,
			GatewayPaymentID: input.GatewayPaymentID,
			PaymentMethod:    input.PaymentMethod,
		})
		return respond(c, "Purchase not failed", p, err)
	}
}

// MarkRefunded records a refund.
// @Summary Mark a purchase refunded
// @Description Records a refund of a paid purchase. A missing or invalid refundedAmount means the full amount.
// @Tags purchases
// @Accept json
// @Produce json
// @Param request body MarkRefundedRequest true "Refund report"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /purchases/mark-refunded [post]
// @Security InternalToken
func MarkRefunded(ledger *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[MarkRefundedRequest](c)
		if input == nil {
			return err
		}
		key, err := input.key()
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid purchase reference", err)
		}
		p, err := ledger.Refund(c.UserContext(), key, purchase.MarkRefunded{
			RefundID:       input.RefundID,
			RefundedAmount: parseAmount(input.RefundedAmount),
			PaymentMethod:  input.PaymentMethod,
			Notes:          input.Notes,
		})
		return respond(c, "Purchase not refunded", p, err)
	}
}

// ListPurchases returns every purchase.
// @Summary List all purchases
// @Description Admin view of the ledger, newest first.
// @Tags purchases
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /purchases [get]
// @Security Bearer
func ListPurchases(ledger *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ps, err := ledger.ListAll(c.UserContext())
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list purchases", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Purchases fetched", newPurchaseResponses(ps))
	}
}

// MyPurchases returns the caller's purchases.
// @Summary List my purchases
// @Description Purchases whose user id or email matches the caller, newest first.
// @Tags purchases
// @Produce json
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /purchases/my [get]
// @Security Bearer
func MyPurchases(ledger *purchasesvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := middleware.CurrentActor(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		ps, err := ledger.ListMine(c.UserContext(), actor.UserID, actor.Email)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list purchases", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Purchases fetched", newPurchaseResponses(ps))
	}
}

// GetPurchase returns one purchase.
// @Summary Get a purchase
// @Description Resolves by ledger id or, failing that, by gateway order id.
// @Tags purchases
// @Produce json
// @Param id path string true "Ledger id or gateway order id"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /purchases/{id} [get]
// @Security Bearer
func GetPurchase(ledger *purchasesvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := ledger.Get(c.UserContext(), purchase.ParseKey(c.Params("id")))
		return respond(c, "Purchase not found", p, err)
	}
}

func respond(c *fiber.Ctx, title string, p *purchase.Purchase, err error) error {
	if err != nil {
		return common.ProblemDetailsJSON(c, title, err)
	}
	return common.SuccessResponseJSON(c, fiber.StatusOK, "Purchase "+string(p.Status), NewPurchaseResponse(p))
}
