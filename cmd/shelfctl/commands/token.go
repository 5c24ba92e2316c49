package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/shelfscan-backend/internal/app"
	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
)

func newTokenCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Args:  cobra.ExactArgs(1),
		Short: "Mint an access token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				var u domain.User
				if err := a.Store.Get(ctx, docstore.Users, args[0], &u); err != nil {
					return err
				}
				token, err := a.Services.Tokens.MintFor(&u)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				fmt.Fprintf(cmd.ErrOrStderr(), "expires in %s\n", a.Services.Tokens.TTL())
				return nil
			})
		},
	}
	return cmd
}
