package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/data/testutil"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/http/middleware"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/modules/intake"
	"github.com/yungbote/shelfscan-backend/internal/modules/jobs"
	"github.com/yungbote/shelfscan-backend/internal/modules/reports"
	"github.com/yungbote/shelfscan-backend/internal/modules/reviews"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

type sessionTokens map[string]*domain.Session

func (s sessionTokens) Parse(token string) (*domain.Session, error) {
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return nil, apierr.Unauthenticated("unknown token")
}

type stubExtractor struct{ text string }

func (s stubExtractor) ExtractText(ctx context.Context, imageURL string) (string, error) {
	return s.text, nil
}

type memBlobs struct{}

func (memBlobs) Upload(ctx context.Context, path, contentType string, data []byte, onProgress func(written, total int64)) (string, error) {
	total := int64(len(data))
	onProgress(total, total)
	return "https://storage.googleapis.com/shelves/" + path, nil
}

type testAPI struct {
	env    *testutil.Env
	router *gin.Engine
	admin  *domain.User
	worker *domain.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := testutil.NewEnv(t)
	log := env.Log
	ledger := activity.NewLedger(env.Store, log)
	jobMgr := jobs.New(jobs.Deps{Store: env.Store, Log: log, Ledger: ledger})
	reviewMgr := reviews.New(reviews.Deps{Store: env.Store, Log: log, Ledger: ledger})
	bridge := intake.NewBridge(intake.BridgeDeps{Store: env.Store, Extractor: stubExtractor{text: "Cola 12\nChips 3"}, Ledger: ledger, Log: log})
	svc := intake.NewService(intake.ServiceDeps{Store: env.Store, Blobs: memBlobs{}, Bridge: bridge, Log: log})
	agg := reports.New(reports.Deps{Store: env.Store, Log: log})

	admin := testutil.SeedUser(t, env.Store, "Ada", domain.RoleAdmin)
	worker := testutil.SeedUser(t, env.Store, "Wes", domain.RoleContractor)
	am := middleware.NewAuthMiddleware(log, sessionTokens{
		"admin":  {UserID: admin.ID, Role: domain.RoleAdmin, Name: admin.Name},
		"worker": {UserID: worker.ID, Role: domain.RoleContractor, Name: worker.Name},
	})

	jh := NewJobHandler(log, jobMgr, ledger)
	rh := NewReviewHandler(log, reviewMgr, ledger)
	ih := NewIntakeHandler(log, bridge, svc, 0)
	ph := NewReportHandler(log, agg, reports.XLSXExporter{}, nil)

	r := gin.New()
	api := r.Group("/api", am.RequireAuth())
	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	workerOnly := middleware.RequireRole(domain.RoleContractor)
	api.POST("/jobs", adminOnly, jh.CreateJob)
	api.GET("/jobs/stream", adminOnly, jh.StreamQueue)
	api.POST("/jobs/:id/assign", adminOnly, jh.AssignJob)
	api.GET("/jobs/:id/events", adminOnly, jh.Events)
	api.POST("/jobs/:id/captures", workerOnly, ih.Capture)
	api.POST("/functions/parseShelfImage", ih.ParseShelfImage)
	api.GET("/reviews/:id", rh.GetReview)
	api.POST("/reviews/:id/submit", workerOnly, rh.Submit)
	api.POST("/reviews/:id/admin-review", adminOnly, rh.AdminReview)
	api.GET("/reviews/:id/events", adminOnly, rh.Events)
	api.GET("/reports/export.xlsx", adminOnly, ph.ExportXLSX)
	api.POST("/reports/export/sheets", adminOnly, ph.ExportSheets)

	return &testAPI{env: env, router: r, admin: admin, worker: worker}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func imageForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "shelf.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write(img.Bytes())
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &body, mw.FormDataContentType()
}

type sseEvent struct {
	name string
	data string
}

// readEvents reads events from an SSE body until stop returns true.
func readEvents(t *testing.T, body io.Reader, stop func(sseEvent) bool) []sseEvent {
	t.Helper()
	var out []sseEvent
	sc := bufio.NewScanner(body)
	var cur sseEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.name != "":
			out = append(out, cur)
			if stop(cur) {
				return out
			}
			cur = sseEvent{}
		}
	}
	return out
}

func TestCreateAndAssignJob(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/jobs", "admin", gin.H{"title": "Aisle 4", "location": "Store 9"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: want=%d got=%d body=%s", http.StatusCreated, w.Code, w.Body.String())
	}
	var created struct{ Job domain.Job }
	decode(t, w, &created)
	if created.Job.Status != domain.JobStatusPending {
		t.Fatalf("status: want=%s got=%s", domain.JobStatusPending, created.Job.Status)
	}

	w = a.do(t, http.MethodPost, "/api/jobs/"+created.Job.ID+"/assign", "worker", gin.H{"contractorId": a.worker.ID})
	if w.Code != http.StatusForbidden {
		t.Fatalf("contractor assign: want=%d got=%d", http.StatusForbidden, w.Code)
	}

	w = a.do(t, http.MethodPost, "/api/jobs/"+created.Job.ID+"/assign", "admin", gin.H{"contractorId": a.worker.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	var assigned struct{ Job domain.Job }
	decode(t, w, &assigned)
	if assigned.Job.ContractorID == nil || *assigned.Job.ContractorID != a.worker.ID {
		t.Fatalf("contractorId: want=%s got=%v", a.worker.ID, assigned.Job.ContractorID)
	}

	w = a.do(t, http.MethodGet, "/api/jobs/"+created.Job.ID+"/events", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	var events struct{ Events []domain.Event }
	decode(t, w, &events)
	if len(events.Events) != 2 || events.Events[0].Kind != domain.EventJobCreated || events.Events[1].Kind != domain.EventJobAssigned {
		t.Fatalf("job events: got=%+v", events.Events)
	}
}

func TestSaveReviewRequiresProducts(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 1", a.worker.ID)
	rv := testutil.SeedReview(t, a.env.Store, job.ID, a.worker.ID, domain.ReviewStatusPending, domain.LineItem{Name: "Cola", Quantity: 2})

	for _, body := range []any{gin.H{}, gin.H{"products": nil}} {
		w := a.do(t, http.MethodPost, "/api/reviews/"+rv.ID+"/submit", "worker", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("submit %v: want=%d got=%d body=%s", body, http.StatusBadRequest, w.Code, w.Body.String())
		}
	}

	var stored domain.Review
	if err := a.env.Store.Get(context.Background(), docstore.Reviews, rv.ID, &stored); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != domain.ReviewStatusPending || len(stored.ReviewedData) != 0 {
		t.Fatalf("review changed: status=%s reviewedData=%s", stored.Status, stored.ReviewedData)
	}
}

func TestSubmitReviewReportsFieldErrors(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 1", a.worker.ID)
	rv := testutil.SeedReview(t, a.env.Store, job.ID, a.worker.ID, domain.ReviewStatusPending, domain.LineItem{Name: "Cola", Quantity: 2})

	w := a.do(t, http.MethodPost, "/api/reviews/"+rv.ID+"/submit", "worker", gin.H{
		"products": []gin.H{{"name": " ", "quantity": 1}, {"name": "Chips", "quantity": "1.5"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("submit: want=%d got=%d body=%s", http.StatusBadRequest, w.Code, w.Body.String())
	}
	var env struct {
		Error struct {
			Message string
			Code    string
			Details []reviews.FieldError
		}
	}
	decode(t, w, &env)
	if env.Error.Message != reviews.MsgFixBeforeSaving {
		t.Fatalf("message: want=%q got=%q", reviews.MsgFixBeforeSaving, env.Error.Message)
	}
	if len(env.Error.Details) != 2 {
		t.Fatalf("details: want=2 got=%d (%+v)", len(env.Error.Details), env.Error.Details)
	}

	w = a.do(t, http.MethodGet, "/api/reviews/"+rv.ID, "worker", nil)
	var got struct {
		Review struct {
			Status      domain.ReviewStatus
			WorkingCopy []domain.LineItem
		}
	}
	decode(t, w, &got)
	if got.Review.Status != domain.ReviewStatusPending {
		t.Fatalf("status after rejected submit: want=%s got=%s", domain.ReviewStatusPending, got.Review.Status)
	}
}

func TestReviewLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 2", a.worker.ID)
	rv := testutil.SeedReview(t, a.env.Store, job.ID, a.worker.ID, domain.ReviewStatusPending, domain.LineItem{Name: "Cola", Quantity: 2})

	w := a.do(t, http.MethodPost, "/api/reviews/"+rv.ID+"/submit", "worker", gin.H{
		"products": []gin.H{{"name": "Cola Zero", "quantity": 4}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	w = a.do(t, http.MethodPost, "/api/reviews/"+rv.ID+"/submit", "worker", gin.H{
		"products": []gin.H{{"name": "Cola Zero", "quantity": 4}},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("second submit: want=%d got=%d", http.StatusConflict, w.Code)
	}

	w = a.do(t, http.MethodPost, "/api/reviews/"+rv.ID+"/admin-review", "admin", gin.H{
		"products": []gin.H{{"name": "Cola Zero", "quantity": "5"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("admin review: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}

	w = a.do(t, http.MethodGet, "/api/reviews/"+rv.ID, "admin", nil)
	var got struct {
		Review struct {
			Status      domain.ReviewStatus
			WorkingCopy []domain.LineItem
		}
	}
	decode(t, w, &got)
	if got.Review.Status != domain.ReviewStatusAdminReviewed {
		t.Fatalf("status: want=%s got=%s", domain.ReviewStatusAdminReviewed, got.Review.Status)
	}
	if len(got.Review.WorkingCopy) != 1 || got.Review.WorkingCopy[0].Quantity != 5 {
		t.Fatalf("workingCopy: want admin data got=%+v", got.Review.WorkingCopy)
	}

	w = a.do(t, http.MethodGet, "/api/reviews/"+rv.ID+"/events", "admin", nil)
	var events struct{ Events []domain.Event }
	decode(t, w, &events)
	if len(events.Events) != 2 {
		t.Fatalf("events: want=2 got=%d", len(events.Events))
	}
}

func TestParseShelfImageRequiresFields(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/api/functions/parseShelfImage", "worker", gin.H{"imageUrl": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
}

func TestCaptureReturnsParsedReview(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 3", a.worker.ID)

	body, ct := imageForm(t)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/captures", body)
	req.Header.Set("Authorization", "Bearer worker")
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("capture: want=%d got=%d body=%s", http.StatusCreated, w.Code, w.Body.String())
	}
	var res intake.ParseResponse
	decode(t, w, &res)
	if res.ReviewID == "" {
		t.Fatalf("reviewId: want non-empty")
	}
	want := []domain.LineItem{{Name: "Cola", Quantity: 12}, {Name: "Chips", Quantity: 3}}
	if len(res.ParsedData.Products) != len(want) {
		t.Fatalf("products: want=%+v got=%+v", want, res.ParsedData.Products)
	}
	for i := range want {
		if res.ParsedData.Products[i] != want[i] {
			t.Fatalf("product %d: want=%+v got=%+v", i, want[i], res.ParsedData.Products[i])
		}
	}
}

func TestCaptureRejectsMissingImage(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 5", a.worker.ID)
	w := a.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/captures", "worker", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, w.Code)
	}
}

func TestCaptureStreamsProgress(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 6", a.worker.ID)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	body, ct := imageForm(t)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/jobs/"+job.ID+"/captures", body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer worker")
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	events := readEvents(t, resp.Body, func(ev sseEvent) bool { return ev.name != "progress" })
	if len(events) < 3 {
		t.Fatalf("events: want progress then result got=%+v", events)
	}
	last := events[len(events)-1]
	if last.name != "result" {
		t.Fatalf("final event: want=result got=%s (%s)", last.name, last.data)
	}
	var first intake.Progress
	if err := json.Unmarshal([]byte(events[0].data), &first); err != nil {
		t.Fatalf("progress payload: %v", err)
	}
	if first.Stage != intake.StageUpload {
		t.Fatalf("first stage: want=%s got=%s", intake.StageUpload, first.Stage)
	}
	if events[len(events)-2].name != "progress" || !strings.Contains(events[len(events)-2].data, intake.StageProcessing) {
		t.Fatalf("expected processing stage before result, got=%+v", events)
	}
}

func TestStreamQueueSendsSnapshot(t *testing.T) {
	a := newTestAPI(t)
	testutil.SeedJob(t, a.env.Store, "Unassigned aisle")
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/jobs/stream?token=admin", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: want=text/event-stream got=%s", ct)
	}

	events := readEvents(t, resp.Body, func(sseEvent) bool { return true })
	if len(events) != 1 || events[0].name != "snapshot" {
		t.Fatalf("first event: want snapshot got=%+v", events)
	}
	var list []domain.Job
	if err := json.Unmarshal([]byte(events[0].data), &list); err != nil {
		t.Fatalf("snapshot payload: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Unassigned aisle" {
		t.Fatalf("queue: want one pending job got=%+v", list)
	}
}

func TestExportXLSXDownload(t *testing.T) {
	a := newTestAPI(t)
	job := testutil.SeedAssignedJob(t, a.env.Store, "Aisle 7", a.worker.ID)
	testutil.SeedReview(t, a.env.Store, job.ID, a.worker.ID, domain.ReviewStatusReviewed, domain.LineItem{Name: "Soap", Quantity: 6})

	w := a.do(t, http.MethodGet, "/api/reports/export.xlsx", "admin", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: want=%d got=%d body=%s", http.StatusOK, w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Fatalf("Content-Disposition: want xlsx attachment got=%q", cd)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}
}

func TestExportSheetsUnconfigured(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/api/reports/export/sheets", "admin", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusConflict, w.Code, w.Body.String())
	}
}
