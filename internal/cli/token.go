package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amirasaad/tripledger/pkg/service/auth"
	"github.com/spf13/cobra"
)

func newTokenCommand(rt *runtime) *cobra.Command {
	var (
		userID string
		email  string
		admin  bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(userID) == "" && strings.TrimSpace(email) == "" {
				return errors.New("pass --user-id or --email")
			}
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			actor := auth.Actor{UserID: userID, Email: email, Role: auth.RoleUser}
			if admin {
				actor.Role = auth.RoleAdmin
			}
			token, err := auth.NewWithJWT(cfg.Auth.Jwt, slog.Default()).GenerateToken(cmd.Context(), actor)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Subject user id")
	cmd.Flags().StringVar(&email, "email", "", "Subject email")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	return cmd
}
