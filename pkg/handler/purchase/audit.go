// Package purchase holds event bus subscribers for purchase lifecycle events.
package purchase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/tripledger/pkg/domain/events"
	"github.com/amirasaad/tripledger/pkg/eventbus"
)

// HandleAudit writes one audit line per lifecycle event so that every
// financial state change can be traced from the logs alone.
func HandleAudit(logger *slog.Logger) eventbus.HandlerFunc {
	return func(ctx context.Context, e events.Event) error {
		log := logger.With(
			"handler", "purchase.HandleAudit",
			"event_type", e.Type(),
		)

		var base events.PurchaseEvent
		attrs := []any{}
		switch evt := e.(type) {
		case *events.PurchaseCreated:
			base = evt.PurchaseEvent
			attrs = append(attrs, "package_slug", evt.PackageSlug, "travellers", evt.Travellers)
		case *events.PurchasePaid:
			base = evt.PurchaseEvent
			attrs = append(attrs, "gateway_payment_id", evt.GatewayPaymentID, "recovered", evt.Recovered)
		case *events.PurchaseFailed:
			base = evt.PurchaseEvent
			attrs = append(attrs, "reason", evt.Reason)
		case *events.PurchaseRefunded:
			base = evt.PurchaseEvent
			attrs = append(attrs, "refund_id", evt.RefundID, "refunded_amount", evt.RefundedAmount.StringFixed(2))
		default:
			err := fmt.Errorf("unexpected event type: %s", e.Type())
			log.Error("unexpected event type", "error", err)
			return err
		}

		log.InfoContext(ctx, "📒 purchase audit",
			append([]any{
				"purchase_id", base.PurchaseID,
				"internal_order_id", base.InternalOrderID,
				"gateway_order_id", base.GatewayOrderID,
				"status", base.Status,
				"amount", base.Amount.StringFixed(2),
				"currency", base.Currency,
				"occurred_at", base.OccurredAt,
			}, attrs...)...,
		)
		return nil
	}
}

// Register subscribes the audit handler to every purchase event type.
func Register(bus eventbus.Bus, logger *slog.Logger) {
	audit := HandleAudit(logger)
	for eventType := range events.EventTypes {
		bus.Register(eventType, audit)
	}
}
