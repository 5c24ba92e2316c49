package jobs

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/data/testutil"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

func TestLiveViewsFlagInconsistentJobs(t *testing.T) {
	env := testutil.NewEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	m := New(Deps{Store: env.Store, Log: &logger.Logger{SugaredLogger: zap.New(core).Sugar()}})

	testutil.SeedJob(t, env.Store, "fine")
	broken := &domain.Job{Title: "broken", Status: domain.JobStatusAssigned}
	if _, err := env.Store.Create(context.Background(), docstore.Jobs, broken); err != nil {
		t.Fatalf("seed broken job: %v", err)
	}

	snaps := make(chan []domain.Job, 4)
	unsub := m.WatchQueue(context.Background(), func(rows []domain.Job) { snaps <- rows }, nil)
	rows := recvJobs(t, snaps)
	unsub()
	if len(rows) != 2 {
		t.Fatalf("queue: inconsistent jobs must still be delivered, got=%d", len(rows))
	}
	flagged := logs.FilterMessage("inconsistent job in live view").All()
	if len(flagged) != 1 || flagged[0].ContextMap()["job_id"] != broken.ID {
		t.Fatalf("flagged: want broken job got=%+v", flagged)
	}

	one := make(chan *domain.Job, 4)
	stop := m.WatchJob(context.Background(), broken.ID, func(j *domain.Job) { one <- j }, nil)
	defer stop()
	select {
	case j := <-one:
		if j == nil || j.ID != broken.ID {
			t.Fatalf("WatchJob: got=%+v", j)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for WatchJob")
	}
	if n := logs.FilterMessage("inconsistent job in live view").Len(); n != 2 {
		t.Fatalf("flagged after WatchJob: want=2 got=%d", n)
	}
}
