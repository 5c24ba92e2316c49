package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/shelfscan-backend/internal/app"
)

func newAssignCommand(open Opener) *cobra.Command {
	var asUser string
	cmd := &cobra.Command{
		Use:   "assign JOB_ID CONTRACTOR_ID",
		Args:  cobra.ExactArgs(2),
		Short: "Assign a pending job to a contractor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess, err := sessionFor(ctx, a.Store, asUser)
				if err != nil {
					return err
				}
				job, err := a.Services.Jobs.Assign(ctx, sess, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "job %s assigned to %s\n", job.ID, *job.ContractorID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asUser, "as", "", "admin user id to act as")
	return cmd
}
