package gcp

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// SheetsClient overwrites spreadsheet ranges through the Sheets API.
type SheetsClient struct {
	log *logger.Logger
	svc *sheets.Service
}

func NewSheetsClient(ctx context.Context, log *logger.Logger) (*SheetsClient, error) {
	opts := append(ClientOptionsFromEnv(), option.WithScopes(sheets.SpreadsheetsScope))
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsClient{log: log.With("service", "SheetsClient"), svc: svc}, nil
}

// ReplaceValues clears the sheet named in rng, then writes values starting at rng.
func (c *SheetsClient) ReplaceValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (string, error) {
	if sheet := sheetOf(rng); sheet != "" {
		if _, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, sheet, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("clear %s: %w", sheet, err)
		}
	}
	resp, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	c.log.Info("sheet updated", "spreadsheet_id", spreadsheetID, "range", resp.UpdatedRange, "rows", resp.UpdatedRows)
	return resp.UpdatedRange, nil
}

func sheetOf(rng string) string {
	if i := strings.Index(rng, "!"); i > 0 {
		return rng[:i]
	}
	return ""
}
