package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/fatih/color"
)

var statusColors = map[purchase.Status]*color.Color{
	purchase.StatusCreated:  color.New(color.FgYellow),
	purchase.StatusPaid:     color.New(color.FgGreen, color.Bold),
	purchase.StatusFailed:   color.New(color.FgRed),
	purchase.StatusRefunded: color.New(color.FgCyan),
}

func colorStatus(s purchase.Status) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(s)
	}
	return s.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, ps []*purchase.Purchase) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INTERNAL ORDER\tGATEWAY ORDER\tSTATUS\tAMOUNT\tEMAIL\tCREATED")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\n",
			p.InternalOrderID,
			p.GatewayOrderID,
			colorStatus(p.Status),
			p.Pricing.Amount.StringFixed(2),
			p.Pricing.Currency,
			p.Actor.Email,
			p.CreatedAt.Format(time.RFC3339),
		)
	}
	return tw.Flush()
}

func writeDetail(w io.Writer, p *purchase.Purchase) error {
	bold := color.New(color.Bold)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s\t%s\n", bold.Sprint(label), value)
		}
	}
	row("ID", p.ID.String())
	row("Internal order", p.InternalOrderID)
	row("Receipt", p.ReceiptNumber)
	row("Gateway order", p.GatewayOrderID)
	row("Gateway payment", p.GatewayPaymentID)
	row("Status", colorStatus(p.Status))
	row("Customer", fmt.Sprintf("%s <%s> %s", p.Actor.FullName, p.Actor.Email, p.Actor.Phone))
	row("User", p.Actor.UserID)
	row("Package", fmt.Sprintf("%s (%s)", p.Subject.PackageTitle, p.Subject.PackageSlug))
	row("Destination", p.Subject.Destination)
	row("Travel date", formatTime(p.Subject.TravelDate, time.DateOnly))
	row("Travellers", fmt.Sprintf("%d x %s %s", p.Pricing.Travellers, p.Pricing.UnitPrice.StringFixed(2), p.Pricing.UnitLabel))
	row("Amount", p.Pricing.Amount.StringFixed(2)+" "+p.Pricing.Currency)
	row("Payment method", p.PaymentMethod)
	row("Failure", p.FailureReason)
	row("Refund id", p.Refund.RefundID)
	if p.Refund.RefundedAmount != nil {
		row("Refunded", p.Refund.RefundedAmount.StringFixed(2)+" "+p.Pricing.Currency)
	}
	row("Notes", p.Notes)
	row("Created", p.CreatedAt.Format(time.RFC3339))
	row("Paid", formatTime(p.PaidAt, time.RFC3339))
	row("Failed", formatTime(p.FailedAt, time.RFC3339))
	row("Refunded at", formatTime(p.RefundedAt, time.RFC3339))
	return tw.Flush()
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
