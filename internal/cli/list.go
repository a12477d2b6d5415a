package cli

import (
	"fmt"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/spf13/cobra"
)

func newListCommand(rt *runtime) *cobra.Command {
	var (
		status string
		userID string
		email  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List purchases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := purchase.Status(status)
			if status != "" && !filter.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			a, err := rt.ledger()
			if err != nil {
				return err
			}

			var ps []*purchase.Purchase
			if userID != "" || email != "" {
				ps, err = a.PurchaseService.ListMine(cmd.Context(), userID, email)
			} else {
				ps, err = a.PurchaseService.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			if status != "" {
				kept := ps[:0]
				for _, p := range ps {
					if p.Status == filter {
						kept = append(kept, p)
					}
				}
				ps = kept
			}

			if rt.asJSON {
				return writeJSON(cmd.OutOrStdout(), ps)
			}
			return writeTable(cmd.OutOrStdout(), ps)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show purchases in this status (created, paid, failed, refunded)")
	cmd.Flags().StringVar(&userID, "user-id", "", "Only show purchases of this user id")
	cmd.Flags().StringVar(&email, "email", "", "Only show purchases of this email")
	return cmd
}
