package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

// ReportExporter writes a report snapshot somewhere outside the store.
type ReportExporter interface {
	Format() string
	Export(ctx context.Context, rows []Row) (*ExportResult, error)
}

type ExportResult struct {
	Format      string `json:"format"`
	Rows        int    `json:"rows"`
	Location    string `json:"location,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"-"`
	Data        []byte `json:"-"`
}

// Export takes a fresh snapshot and hands it to exp.
func (a *Aggregator) Export(ctx context.Context, exp ReportExporter) (*ExportResult, error) {
	if exp == nil {
		return nil, apierr.FailedPrecondition("export is not configured")
	}
	start := time.Now()
	rows, err := a.Rows(ctx)
	if err != nil {
		observability.Current().IncExport(exp.Format(), string(apierr.CodeOf(err)))
		return nil, err
	}
	res, err := exp.Export(ctx, rows)
	if err != nil {
		var ae *apierr.Error
		if !errors.As(err, &ae) {
			err = apierr.WithMessage(apierr.CodeInternal, "Failed to export reports.", err)
		}
		observability.Current().IncExport(exp.Format(), string(apierr.CodeOf(err)))
		a.log.Error("report export failed", "format", exp.Format(), "rows", len(rows), "error", err)
		return nil, err
	}
	observability.Current().IncExport(exp.Format(), "ok")
	a.log.Info("report exported", "format", exp.Format(), "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSXExporter renders the report as a workbook in memory.
type XLSXExporter struct {
	Sheet string
	Now   func() time.Time
}

func (x XLSXExporter) Format() string { return "xlsx" }

func (x XLSXExporter) Export(ctx context.Context, rows []Row) (*ExportResult, error) {
	sheet := strings.TrimSpace(x.Sheet)
	if sheet == "" {
		sheet = "Reports"
	}
	now := time.Now
	if x.Now != nil {
		now = x.Now
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}
	records := Records(rows)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		rec := rec
		if err := f.SetSheetRow(sheet, cell, &rec); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheet, "A", "C", 24)
	_ = f.SetColWidth(sheet, "D", "F", 20)
	_ = f.SetColWidth(sheet, "G", "G", 32)
	_ = f.SetColWidth(sheet, "I", "I", 38)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return &ExportResult{
		Format:      x.Format(),
		Rows:        len(records),
		Filename:    fmt.Sprintf("shelf-reports-%s.xlsx", now().UTC().Format("20060102-150405")),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

// SheetWriter replaces the values in a spreadsheet range and returns the
// range actually written.
type SheetWriter interface {
	ReplaceValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (string, error)
}

// SheetsExporter pushes the report into a Google spreadsheet.
type SheetsExporter struct {
	Writer        SheetWriter
	SpreadsheetID string
	Range         string
}

func (s SheetsExporter) Format() string { return "sheets" }

func (s SheetsExporter) Export(ctx context.Context, rows []Row) (*ExportResult, error) {
	if s.Writer == nil || strings.TrimSpace(s.SpreadsheetID) == "" {
		return nil, apierr.FailedPrecondition("Google Sheets export is not configured")
	}
	rng := strings.TrimSpace(s.Range)
	if rng == "" {
		rng = "Reports!A1"
	}
	records := Records(rows)
	values := make([][]interface{}, 0, len(records)+1)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	values = append(values, header)
	values = append(values, records...)

	written, err := s.Writer.ReplaceValues(ctx, s.SpreadsheetID, rng, values)
	if err != nil {
		return nil, fmt.Errorf("sheets export: %w", err)
	}
	return &ExportResult{
		Format:   s.Format(),
		Rows:     len(records),
		Location: "https://docs.google.com/spreadsheets/d/" + s.SpreadsheetID + "#range=" + written,
	}, nil
}
