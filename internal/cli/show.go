package cli

import (
	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/spf13/cobra"
)

func newShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ledger-id|gateway-order-id>",
		Short: "Show one purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.ledger()
			if err != nil {
				return err
			}
			p, err := a.PurchaseService.Get(cmd.Context(), purchase.ParseKey(args[0]))
			if err != nil {
				return err
			}
			if rt.asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return writeDetail(cmd.OutOrStdout(), p)
		},
	}
}
