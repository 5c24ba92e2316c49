package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yungbote/shelfscan-backend/internal/app"
	"github.com/yungbote/shelfscan-backend/internal/modules/reports"
)

func newExportCommand(open Opener) *cobra.Command {
	var (
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Args:  cobra.NoArgs,
		Short: "Export the completed review report",
		Long:  `Export the completed review report as an xlsx workbook or into the configured Google spreadsheet.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				var exp reports.ReportExporter
				switch format {
				case "xlsx":
					exp = a.Services.XLSX
				case "sheets":
					exp = a.Services.Sheets
				default:
					return fmt.Errorf("unknown format %q (want xlsx or sheets)", format)
				}
				res, err := a.Services.Reports.Export(ctx, exp)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(res.Data) == 0 {
					fmt.Fprintf(out, "exported %d rows to %s\n", res.Rows, res.Location)
					return nil
				}
				path := filepath.Join(outDir, res.Filename)
				if err := os.WriteFile(path, res.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(out, "exported %d rows to %s\n", res.Rows, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or sheets")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the xlsx file")
	return cmd
}
