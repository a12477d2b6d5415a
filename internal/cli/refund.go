package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNotConfirmed = errors.New("refund not confirmed")

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func newRefundCommand(rt *runtime) *cobra.Command {
	var (
		amount   string
		refundID string
		method   string
		notes    string
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "refund <ledger-id|gateway-order-id>",
		Short: "Record a refund for a paid purchase",
		Long: `Records a refund the same way the payment service does. Without
--amount the full purchase amount is recorded. Purchases that are not paid
are left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mark := purchase.MarkRefunded{
				RefundID:      strings.TrimSpace(refundID),
				PaymentMethod: strings.TrimSpace(method),
				Notes:         strings.TrimSpace(notes),
			}
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil || !d.IsPositive() {
					return fmt.Errorf("invalid --amount %q", amount)
				}
				mark.RefundedAmount = &d
			}

			a, err := rt.ledger()
			if err != nil {
				return err
			}
			key := purchase.ParseKey(args[0])
			current, err := a.PurchaseService.Get(cmd.Context(), key)
			if err != nil {
				return err
			}

			if !yes {
				if !stdinIsTerminal() {
					return errors.New("stdin is not a terminal; pass --yes to refund")
				}
				refunded := mark.EffectiveAmount(current)
				prompt := fmt.Sprintf("Refund %s %s of %s (%s)? [y/N] ",
					refunded.StringFixed(2), current.Pricing.Currency, current.InternalOrderID, current.Status)
				if !confirm(cmd, prompt) {
					return errNotConfirmed
				}
			}

			p, err := a.PurchaseService.Refund(cmd.Context(), key, mark)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			if p.Status != purchase.StatusRefunded || current.Status == purchase.StatusRefunded {
				_, _ = color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(),
					"No change: purchase is %s\n", p.Status)
				return nil
			}
			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"Refunded %s %s\n", p.Refund.RefundedAmount.StringFixed(2), p.Pricing.Currency)
			return writeDetail(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Refunded amount (defaults to the full amount)")
	cmd.Flags().StringVar(&refundID, "refund-id", "", "Gateway refund id")
	cmd.Flags().StringVar(&method, "payment-method", "", "Payment method the refund went back to")
	cmd.Flags().StringVar(&notes, "notes", "", "Operator note appended to the purchase")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
