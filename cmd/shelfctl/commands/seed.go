package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/shelfscan-backend/internal/app"
	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/modules/jobs"
)

func newSeedCommand(open Opener) *cobra.Command {
	var (
		admins      []string
		contractors []string
		titles      []string
		location    string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Args:  cobra.NoArgs,
		Short: "Create users and pending jobs",
		Long:  `Create admin and contractor accounts and pending jobs, printing an access token for every account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				var firstAdmin *domain.User
				for _, group := range []struct {
					names []string
					role  domain.Role
				}{{admins, domain.RoleAdmin}, {contractors, domain.RoleContractor}} {
					for _, name := range group.names {
						u := &domain.User{Name: name, Role: group.role}
						if _, err := a.Store.Create(ctx, docstore.Users, u); err != nil {
							return fmt.Errorf("create %s %q: %w", group.role, name, err)
						}
						if firstAdmin == nil && group.role == domain.RoleAdmin {
							firstAdmin = u
						}
						token, err := a.Services.Tokens.MintFor(u)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", u.Role, u.ID, u.Name, token)
					}
				}
				if len(titles) == 0 {
					return nil
				}
				if firstAdmin == nil {
					return fmt.Errorf("--job needs at least one --admin")
				}
				sess := &domain.Session{UserID: firstAdmin.ID, Role: domain.RoleAdmin, Name: firstAdmin.Name}
				for _, title := range titles {
					job, err := a.Services.Jobs.Create(ctx, sess, jobs.NewJob{Title: title, Location: location})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "job\t%s\t%s\n", job.ID, job.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&admins, "admin", nil, "admin display name (repeatable)")
	cmd.Flags().StringArrayVar(&contractors, "contractor", nil, "contractor display name (repeatable)")
	cmd.Flags().StringArrayVar(&titles, "job", nil, "pending job title (repeatable)")
	cmd.Flags().StringVar(&location, "location", "", "location for seeded jobs")
	return cmd
}
