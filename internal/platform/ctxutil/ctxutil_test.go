package ctxutil

import (
	"context"
	"testing"

	"github.com/yungbote/shelfscan-backend/internal/domain"
)

func TestSessionRoundTrip(t *testing.T) {
	if GetSession(context.Background()) != nil {
		t.Fatalf("expected no session on empty context")
	}
	sess := &domain.Session{UserID: "u1", Role: domain.RoleAdmin}
	got := GetSession(WithSession(context.Background(), sess))
	if got == nil || got.UserID != "u1" {
		t.Fatalf("GetSession: want=u1 got=%v", got)
	}
}

func TestTraceDataNilContext(t *testing.T) {
	//nolint:staticcheck
	ctx := WithTraceData(nil, &TraceData{RequestID: "r"})
	if td := GetTraceData(ctx); td == nil || td.RequestID != "r" {
		t.Fatalf("GetTraceData: want request id r got=%v", td)
	}
}
