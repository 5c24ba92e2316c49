package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/data/testutil"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

type fixture struct {
	env      *testutil.Env
	rec      *testutil.RecordingStore
	m        *Manager
	ledger   *activity.Ledger
	admin    *domain.Session
	worker   *domain.Session
	job      *domain.Job
	workerID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := testutil.NewEnv(t)
	rec := testutil.NewRecordingStore(env.Store)
	ledger := activity.NewLedger(env.Store, env.Log)
	admin := testutil.SeedUser(t, env.Store, "ada", domain.RoleAdmin)
	worker := testutil.SeedUser(t, env.Store, "cole", domain.RoleContractor)
	return &fixture{
		env:      env,
		rec:      rec,
		m:        New(Deps{Store: rec, Log: env.Log, Ledger: ledger}),
		ledger:   ledger,
		admin:    testutil.AdminSession(admin.ID),
		worker:   testutil.ContractorSession(worker.ID),
		job:      testutil.SeedAssignedJob(t, env.Store, "Aisle 9", worker.ID),
		workerID: worker.ID,
	}
}

func drafts(pairs ...interface{}) []DraftItem {
	var out []DraftItem
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, DraftItem{Name: pairs[i].(string), Quantity: Quantity(pairs[i+1].(string))})
	}
	return out
}

func TestSubmitContractorReviewMovesToReviewed(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending, domain.LineItem{Name: "Soup", Quantity: 3})

	got, err := f.m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Soup", "4", "Beans", "2"))
	if err != nil {
		t.Fatalf("SubmitContractorReview: %v", err)
	}
	if got.Status != domain.ReviewStatusReviewed {
		t.Fatalf("status: want=%s got=%s", domain.ReviewStatusReviewed, got.Status)
	}
	items, ok, err := domain.DecodeProducts(got.ReviewedData)
	if err != nil || !ok || len(items) != 2 || items[0].Quantity != 4 || items[1].Name != "Beans" {
		t.Fatalf("reviewed data: items=%v ok=%v err=%v", items, ok, err)
	}
	parsed, _, _ := domain.DecodeProducts(got.ParsedData)
	if len(parsed) != 1 || parsed[0].Quantity != 3 {
		t.Fatalf("parsed data must be untouched: got=%v", parsed)
	}

	events, _ := f.ledger.ForReview(context.Background(), r.ID)
	if len(events) != 1 || events[0].Kind != domain.EventReviewSubmitted || events[0].ToStatus != string(domain.ReviewStatusReviewed) {
		t.Fatalf("ledger: got=%+v", events)
	}
}

func TestInvalidItemsNeverWrite(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)

	_, err := f.m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Soup", "1", "", "2", "Tea", "-3"))
	if !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Fatalf("code: want=%s got=%s (%v)", apierr.CodeInvalidArgument, apierr.CodeOf(err), err)
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 2 {
		t.Fatalf("validation errors: got=%v", err)
	}
	if got := apierr.Describe(err, "save the review"); got != MsgFixBeforeSaving {
		t.Fatalf("Describe: want=%q got=%q", MsgFixBeforeSaving, got)
	}
	if n := f.rec.Updates(); n != 0 {
		t.Fatalf("updates: want=0 got=%d", n)
	}

	stored, _ := f.m.Get(context.Background(), r.ID)
	if stored.Status != domain.ReviewStatusPending || len(stored.ReviewedData) != 0 {
		t.Fatalf("stored review changed: %+v", stored)
	}
}

func TestSubmitRejectsOtherCallers(t *testing.T) {
	f := newFixture(t)
	other := testutil.SeedUser(t, f.env.Store, "dina", domain.RoleContractor)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)

	cases := []struct {
		name string
		sess *domain.Session
		want apierr.Code
	}{
		{"anonymous", nil, apierr.CodeUnauthenticated},
		{"other contractor", testutil.ContractorSession(other.ID), apierr.CodePermissionDenied},
		{"admin", f.admin, apierr.CodePermissionDenied},
	}
	for _, tc := range cases {
		_, err := f.m.SubmitContractorReview(context.Background(), tc.sess, r.ID, drafts("Soup", "1"))
		if got := apierr.CodeOf(err); got != tc.want {
			t.Fatalf("%s: want=%s got=%s", tc.name, tc.want, got)
		}
	}
	if n := f.rec.Updates(); n != 0 {
		t.Fatalf("updates: want=0 got=%d", n)
	}
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)

	if _, err := f.m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Soup", "1")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Soup", "9"))
	if !apierr.Is(err, apierr.CodeFailedPrecondition) {
		t.Fatalf("second submit: want failed-precondition got=%v", err)
	}
	stored, _ := f.m.Get(context.Background(), r.ID)
	items, _, _ := domain.DecodeProducts(stored.ReviewedData)
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Fatalf("reviewed data overwritten: %v", items)
	}
}

func TestAdminSaveRequiresSubmittedReview(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)

	_, err := f.m.SaveAdminReview(context.Background(), f.admin, r.ID, drafts("Soup", "1"))
	if !apierr.Is(err, apierr.CodeFailedPrecondition) {
		t.Fatalf("admin save on pending: want failed-precondition got=%v", err)
	}
	_, err = f.m.SaveAdminReview(context.Background(), f.worker, r.ID, drafts("Soup", "1"))
	if !apierr.Is(err, apierr.CodePermissionDenied) {
		t.Fatalf("contractor admin save: want permission-denied got=%v", err)
	}
}

func TestAdminSaveIsRepeatable(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusReviewed, domain.LineItem{Name: "Soup", Quantity: 2})

	first, err := f.m.SaveAdminReview(context.Background(), f.admin, r.ID, drafts("Soup", "5"))
	if err != nil {
		t.Fatalf("first admin save: %v", err)
	}
	if first.Status != domain.ReviewStatusAdminReviewed || first.AdminReviewedAt == nil {
		t.Fatalf("first admin save: got=%+v", first)
	}
	second, err := f.m.SaveAdminReview(context.Background(), f.admin, r.ID, drafts("Soup", "6", "Rice", "1"))
	if err != nil {
		t.Fatalf("second admin save: %v", err)
	}
	items, _ := second.WorkingCopy()
	if len(items) != 2 || items[0].Quantity != 6 {
		t.Fatalf("working copy after resave: got=%v", items)
	}
	reviewed, _, _ := domain.DecodeProducts(second.ReviewedData)
	if len(reviewed) != 1 || reviewed[0].Quantity != 2 {
		t.Fatalf("contractor data must be kept: got=%v", reviewed)
	}
}

func TestFailedWriteLeavesReviewUnchanged(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)
	faulty := testutil.NewFaultyStore(f.env.Store)
	faulty.FailUpdate(docstore.Reviews, apierr.Wrap(apierr.CodeUnavailable, errors.New("connection refused")))
	m := New(Deps{Store: faulty, Log: f.env.Log, Ledger: f.ledger})

	_, err := m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Soup", "1"))
	if !apierr.Is(err, apierr.CodeUnavailable) {
		t.Fatalf("want unavailable got=%v", err)
	}
	stored, _ := f.m.Get(context.Background(), r.ID)
	if stored.Status != domain.ReviewStatusPending {
		t.Fatalf("status: want=pending got=%s", stored.Status)
	}
	events, _ := f.ledger.ForReview(context.Background(), r.ID)
	if len(events) != 0 {
		t.Fatalf("ledger must be empty after a failed write: %+v", events)
	}
}

func TestWorkingCopyFollowsPrecedence(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending, domain.LineItem{Name: "Parsed", Quantity: 1})

	_, items, err := f.m.WorkingCopy(context.Background(), r.ID)
	if err != nil || len(items) != 1 || items[0].Name != "Parsed" {
		t.Fatalf("pending working copy: items=%v err=%v", items, err)
	}
	if _, err := f.m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Reviewed", "2")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, items, _ = f.m.WorkingCopy(context.Background(), r.ID)
	if len(items) != 1 || items[0].Name != "Reviewed" {
		t.Fatalf("reviewed working copy: %v", items)
	}
	if _, err := f.m.SaveAdminReview(context.Background(), f.admin, r.ID, drafts("Final", "3")); err != nil {
		t.Fatalf("admin save: %v", err)
	}
	_, items, _ = f.m.WorkingCopy(context.Background(), r.ID)
	if len(items) != 1 || items[0].Name != "Final" {
		t.Fatalf("admin working copy: %v", items)
	}
}

func TestWatchContractorHistory(t *testing.T) {
	f := newFixture(t)
	testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusReviewed)
	pending := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)

	snaps := make(chan []domain.Review, 8)
	unsub := f.m.WatchContractorHistory(context.Background(), f.workerID, func(rows []domain.Review) { snaps <- rows }, nil)
	defer unsub()

	first := next(t, snaps)
	if len(first) != 1 {
		t.Fatalf("initial history: want=1 got=%d", len(first))
	}
	if _, err := f.m.SubmitContractorReview(context.Background(), f.worker, pending.ID, drafts("Soup", "1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case rows := <-snaps:
			if len(rows) == 2 {
				for _, r := range rows {
					if r.Status != domain.ReviewStatusReviewed {
						t.Fatalf("history holds %s review", r.Status)
					}
				}
				return
			}
		case <-deadline:
			t.Fatalf("history never reflected the submit")
		}
	}
}

func next(t *testing.T, ch <-chan []domain.Review) []domain.Review {
	t.Helper()
	select {
	case rows := <-ch:
		return rows
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot delivered")
		return nil
	}
}

func TestWatchJobReviewsOrdersOneJobByTimestamp(t *testing.T) {
	f := newFixture(t)
	other := testutil.SeedAssignedJob(t, f.env.Store, "Aisle 2", f.workerID)
	testutil.SeedReview(t, f.env.Store, other.ID, f.workerID, domain.ReviewStatusPending)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		r := &domain.Review{
			JobID:        f.job.ID,
			ContractorID: f.workerID,
			ImageURL:     "https://storage.googleapis.com/bucket/x.jpg",
			Status:       domain.ReviewStatusPending,
			Timestamp:    base.Add(offset),
		}
		if _, err := f.env.Store.Create(context.Background(), docstore.Reviews, r); err != nil {
			t.Fatalf("seed review: %v", err)
		}
		ids = append(ids, r.ID)
	}
	want := []string{ids[1], ids[2], ids[0]}

	snaps := make(chan []domain.Review, 8)
	unsub := f.m.WatchJobReviews(context.Background(), f.job.ID, func(rows []domain.Review) { snaps <- rows }, nil)
	defer unsub()

	first := next(t, snaps)
	if len(first) != len(want) {
		t.Fatalf("job reviews: want=%d got=%d", len(want), len(first))
	}
	for i, r := range first {
		if r.JobID != f.job.ID {
			t.Fatalf("review %s belongs to job %s", r.ID, r.JobID)
		}
		if r.ID != want[i] {
			t.Fatalf("order at %d: want=%s got=%s", i, want[i], r.ID)
		}
	}

	if _, err := f.m.SubmitContractorReview(context.Background(), f.worker, ids[0], drafts("Soup", "1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case rows := <-snaps:
			if len(rows) == 3 && rows[2].ID == ids[0] && rows[2].Status == domain.ReviewStatusReviewed {
				return
			}
		case <-deadline:
			t.Fatalf("job reviews never reflected the submit")
		}
	}
}

func TestWatchReviewFollowsOneReview(t *testing.T) {
	f := newFixture(t)
	r := testutil.SeedReview(t, f.env.Store, f.job.ID, f.workerID, domain.ReviewStatusPending)

	got := make(chan *domain.Review, 8)
	unsub := f.m.WatchReview(context.Background(), r.ID, func(rv *domain.Review) { got <- rv }, nil)
	defer unsub()

	recv := func() *domain.Review {
		t.Helper()
		select {
		case rv := <-got:
			return rv
		case <-time.After(2 * time.Second):
			t.Fatalf("no review delivered")
			return nil
		}
	}
	if rv := recv(); rv == nil || rv.Status != domain.ReviewStatusPending {
		t.Fatalf("initial review: got=%+v", rv)
	}
	if _, err := f.m.SubmitContractorReview(context.Background(), f.worker, r.ID, drafts("Soup", "1")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rv := recv(); rv == nil || rv.Status != domain.ReviewStatusReviewed {
		t.Fatalf("review after submit: got=%+v", rv)
	}

	missing := make(chan *domain.Review, 1)
	stop := f.m.WatchReview(context.Background(), "ghost", func(rv *domain.Review) { missing <- rv }, nil)
	defer stop()
	select {
	case rv := <-missing:
		if rv != nil {
			t.Fatalf("missing review: want nil got=%+v", rv)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no delivery for missing review")
	}
}
