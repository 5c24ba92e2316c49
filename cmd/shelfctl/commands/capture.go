package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/shelfscan-backend/internal/app"
	"github.com/yungbote/shelfscan-backend/internal/modules/intake"
)

func newCaptureCommand(open Opener) *cobra.Command {
	var (
		asUser string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "capture JOB_ID",
		Args:  cobra.ExactArgs(1),
		Short: "Upload a shelf photo for a job and print the parsed products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				sess, err := sessionFor(ctx, a.Store, asUser)
				if err != nil {
					return err
				}
				errOut := cmd.ErrOrStderr()
				res, err := a.Services.Intake.CaptureFrom(ctx, sess, args[0], intake.FileCapture{Path: file}, func(p intake.Progress) {
					fmt.Fprintf(errOut, "%s %d/%d\n", p.Stage, p.BytesTransferred, p.TotalBytes)
				})
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			})
		},
	}
	cmd.Flags().StringVar(&asUser, "as", "", "contractor user id to act as")
	cmd.Flags().StringVarP(&file, "file", "f", "", "image file to upload")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
