package reports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yungbote/shelfscan-backend/internal/data/testutil"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

func sampleRows() []Row {
	ts := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return []Row{
		{ReviewID: "r1", JobTitle: "Aisle 1", ContractorName: "Casey", Status: domain.ReviewStatusReviewed, Timestamp: ts,
			Products: []domain.LineItem{{Name: "Soup", Quantity: 3}, {Name: "Rice", Quantity: 1}}},
		{ReviewID: "r2", JobTitle: UnknownJob, ContractorName: UnknownContractor, Status: domain.ReviewStatusAdminReviewed, Timestamp: ts},
	}
}

func TestRecordsOneLinePerProduct(t *testing.T) {
	recs := Records(sampleRows())
	if len(recs) != 3 {
		t.Fatalf("records: want=3 got=%d", len(recs))
	}
	if recs[1][6] != "Rice" || recs[1][7] != 1 {
		t.Fatalf("second record: got=%v", recs[1])
	}
	if recs[2][0] != UnknownJob || recs[2][6] != "" || recs[2][8] != "r2" {
		t.Fatalf("empty review record: got=%v", recs[2])
	}
	for _, rec := range recs {
		if len(rec) != len(Header) {
			t.Fatalf("record width: want=%d got=%d", len(Header), len(rec))
		}
	}
}

func TestXLSXExporter(t *testing.T) {
	exp := XLSXExporter{Now: func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }}
	res, err := exp.Export(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "shelf-reports-20260102-030405.xlsx" || res.Rows != 3 || res.ContentType != xlsxContentType {
		t.Fatalf("result: got=%+v", res)
	}

	f, err := excelize.OpenReader(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	got, err := f.GetRows("Reports")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 4 || got[0][0] != "Job Title" || got[1][6] != "Soup" || got[1][7] != "3" {
		t.Fatalf("sheet rows: got=%v", got)
	}
}

type fakeSheet struct {
	id     string
	rng    string
	values [][]interface{}
	err    error
}

func (f *fakeSheet) ReplaceValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.id, f.rng, f.values = spreadsheetID, rng, values
	return "Reports!A1:I4", nil
}

func TestSheetsExporter(t *testing.T) {
	w := &fakeSheet{}
	res, err := SheetsExporter{Writer: w, SpreadsheetID: "sheet-1"}.Export(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if w.id != "sheet-1" || w.rng != "Reports!A1" || len(w.values) != 4 || w.values[0][0] != "Job Title" {
		t.Fatalf("writer: id=%s rng=%s values=%v", w.id, w.rng, w.values)
	}
	if !strings.Contains(res.Location, "sheet-1") || res.Rows != 3 {
		t.Fatalf("result: got=%+v", res)
	}

	_, err = SheetsExporter{}.Export(context.Background(), nil)
	if !apierr.Is(err, apierr.CodeFailedPrecondition) {
		t.Fatalf("unconfigured: want failed-precondition got=%v", err)
	}
}

func TestAggregatorExportWrapsExporterFailures(t *testing.T) {
	env := testutil.NewEnv(t)
	agg := New(Deps{Store: env.Store, Log: env.Log})
	_, err := agg.Export(context.Background(), SheetsExporter{Writer: &fakeSheet{err: errors.New("quota")}, SpreadsheetID: "s"})
	if !apierr.Is(err, apierr.CodeInternal) {
		t.Fatalf("want internal got=%v", err)
	}
	if got := apierr.Describe(err, "export reports"); got != "Failed to export reports." {
		t.Fatalf("Describe: got=%q", got)
	}

	res, err := agg.Export(context.Background(), XLSXExporter{})
	if err != nil || res.Rows != 0 || len(res.Data) == 0 {
		t.Fatalf("empty export: res=%+v err=%v", res, err)
	}
}
