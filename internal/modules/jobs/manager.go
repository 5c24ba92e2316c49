package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

type Deps struct {
	Store  docstore.Store
	Log    *logger.Logger
	Ledger *activity.Ledger
}

// Manager owns the job state machine: pending, then assigned.
type Manager struct {
	store  docstore.Store
	log    *logger.Logger
	ledger *activity.Ledger
}

func New(deps Deps) *Manager {
	return &Manager{
		store:  deps.Store,
		log:    deps.Log.With("service", "JobManager"),
		ledger: deps.Ledger,
	}
}

type NewJob struct {
	Title        string `json:"title"`
	Location     string `json:"location"`
	Instructions string `json:"instructions"`
}

func (m *Manager) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	if err := m.store.Get(ctx, docstore.Jobs, jobID, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Create adds a pending, unassigned job.
func (m *Manager) Create(ctx context.Context, sess *domain.Session, in NewJob) (*domain.Job, error) {
	if !sess.IsAdmin() {
		return nil, apierr.PermissionDenied("only admins can create jobs")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.InvalidArgument("title is required")
	}
	job := &domain.Job{
		Title:        title,
		Location:     strings.TrimSpace(in.Location),
		Instructions: strings.TrimSpace(in.Instructions),
		Status:       domain.JobStatusPending,
	}
	if _, err := m.store.Create(ctx, docstore.Jobs, job); err != nil {
		m.log.Error("create job failed", "error", err)
		return nil, err
	}
	m.ledger.Append(ctx, activity.Entry{Kind: domain.EventJobCreated, JobID: job.ID, ActorID: sess.UserID, To: string(job.Status)})
	m.log.Info("job created", "job_id", job.ID)
	return job, nil
}

// Assign hands an unassigned job to a contractor. The check and the write
// are separate steps, so two admins racing on one job resolve as
// last-write-wins.
func (m *Manager) Assign(ctx context.Context, sess *domain.Session, jobID, contractorID string) (*domain.Job, error) {
	job, err := m.assign(ctx, sess, strings.TrimSpace(jobID), strings.TrimSpace(contractorID))
	if err != nil {
		observability.Current().IncAssignment(string(apierr.CodeOf(err)))
		m.log.Warn("assign failed", "job_id", jobID, "contractor_id", contractorID, "code", apierr.CodeOf(err), "error", err)
		return nil, err
	}
	observability.Current().IncAssignment("ok")
	m.log.Info("job assigned", "job_id", job.ID, "contractor_id", contractorID)
	return job, nil
}

func (m *Manager) assign(ctx context.Context, sess *domain.Session, jobID, contractorID string) (*domain.Job, error) {
	if !sess.Authenticated() {
		return nil, apierr.Unauthenticated("sign in to assign jobs")
	}
	if !sess.IsAdmin() {
		return nil, apierr.PermissionDenied("only admins can assign jobs")
	}
	if jobID == "" || contractorID == "" {
		return nil, apierr.InvalidArgument("jobId and contractorId are required")
	}

	job, err := m.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Unassigned() {
		return nil, apierr.FailedPrecondition("job is already assigned")
	}

	var contractor domain.User
	if err := m.store.Get(ctx, docstore.Users, contractorID, &contractor); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apierr.InvalidArgument("contractor not found")
		}
		return nil, err
	}
	if contractor.Role != domain.RoleContractor {
		return nil, apierr.InvalidArgument(fmt.Sprintf("user %s is not a contractor", contractorID))
	}

	if err := m.store.Update(ctx, docstore.Jobs, jobID, docstore.Fields{
		"contractor_id": contractorID,
		"status":        domain.JobStatusAssigned,
	}); err != nil {
		return nil, err
	}

	from := job.Status
	job.ContractorID = &contractorID
	job.Status = domain.JobStatusAssigned
	m.ledger.Append(ctx, activity.Entry{
		Kind:    domain.EventJobAssigned,
		JobID:   jobID,
		ActorID: sess.UserID,
		From:    string(from),
		To:      string(job.Status),
		Data:    map[string]interface{}{"contractorId": contractorID},
	})
	return job, nil
}

// ListContractors is a one-shot read of every contractor account.
func (m *Manager) ListContractors(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	q := docstore.Where(docstore.Eq("role", domain.RoleContractor)).Asc("name")
	if err := m.store.Query(ctx, docstore.Users, q, &out); err != nil {
		m.log.Warn("list contractors failed", "error", err)
		return nil, err
	}
	return out, nil
}

// QueueQuery selects pending and assigned jobs, oldest first.
func QueueQuery() docstore.Query {
	return docstore.Where(docstore.In("status", domain.QueueStatuses...)).Asc("created_at")
}

// AssignedQuery selects the jobs currently assigned to one contractor, oldest first.
func AssignedQuery(contractorID string) docstore.Query {
	return docstore.Where(
		docstore.Eq("contractor_id", contractorID),
		docstore.Eq("status", domain.JobStatusAssigned),
	).Asc("created_at")
}

func (m *Manager) WatchQueue(ctx context.Context, onData func([]domain.Job), onError func(error)) docstore.Unsubscribe {
	return docstore.Subscribe[domain.Job](ctx, m.store, docstore.Jobs, QueueQuery(), func(rows []domain.Job) {
		m.checkAll("queue", rows)
		onData(rows)
	}, m.logged("queue", onError))
}

func (m *Manager) WatchAssigned(ctx context.Context, contractorID string, onData func([]domain.Job), onError func(error)) docstore.Unsubscribe {
	return docstore.Subscribe[domain.Job](ctx, m.store, docstore.Jobs, AssignedQuery(contractorID), func(rows []domain.Job) {
		m.checkAll("assigned", rows)
		onData(rows)
	}, m.logged("assigned", onError))
}

// WatchJob follows one job; onData receives nil while it does not exist.
func (m *Manager) WatchJob(ctx context.Context, jobID string, onData func(*domain.Job), onError func(error)) docstore.Unsubscribe {
	return docstore.SubscribeOne[domain.Job](ctx, m.store, docstore.Jobs, jobID, func(j *domain.Job) {
		if j != nil {
			m.check("job", *j)
		}
		onData(j)
	}, m.logged("job", onError))
}

// Inconsistent documents are still delivered so they stay visible to admins.
func (m *Manager) check(view string, j domain.Job) {
	if err := j.CheckInvariant(); err != nil {
		m.log.Warn("inconsistent job in live view", "view", view, "job_id", j.ID, "status", j.Status, "error", err)
	}
}

func (m *Manager) checkAll(view string, rows []domain.Job) {
	for i := range rows {
		m.check(view, rows[i])
	}
}

func (m *Manager) logged(view string, onError func(error)) func(error) {
	return func(err error) {
		m.log.Warn("live view failed", "view", view, "code", apierr.CodeOf(err), "error", err)
		if onError != nil {
			onError(err)
		}
	}
}
