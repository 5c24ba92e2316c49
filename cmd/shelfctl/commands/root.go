package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/shelfscan-backend/internal/app"
	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

// Opener builds the application the commands run against.
type Opener func(ctx context.Context) (*app.App, error)

// NewRootCmd creates the shelfctl command tree backed by the environment's app.
func NewRootCmd() *cobra.Command {
	return newRootCmd(app.New)
}

func newRootCmd(open Opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shelfctl",
		Short:         "Operator tools for the shelf scanning backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newSeedCommand(open),
		newTokenCommand(open),
		newAssignCommand(open),
		newCaptureCommand(open),
		newExportCommand(open),
	)
	return rootCmd
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, open Opener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// sessionFor acts as an existing user.
func sessionFor(ctx context.Context, store docstore.Store, userID string) (*domain.Session, error) {
	if userID == "" {
		return nil, apierr.InvalidArgument("--as is required")
	}
	var u domain.User
	if err := store.Get(ctx, docstore.Users, userID, &u); err != nil {
		return nil, err
	}
	return &domain.Session{UserID: u.ID, Role: u.Role, Name: u.Name}, nil
}
