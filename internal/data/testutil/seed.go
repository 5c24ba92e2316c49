package testutil

import (
	"context"
	"testing"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
)

func SeedUser(tb testing.TB, store docstore.Store, name string, role domain.Role) *domain.User {
	tb.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", Role: role}
	if _, err := store.Create(context.Background(), docstore.Users, u); err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedJob(tb testing.TB, store docstore.Store, title string) *domain.Job {
	tb.Helper()
	j := &domain.Job{Title: title, Location: "Store 12", Instructions: "Scan aisle", Status: domain.JobStatusPending}
	if _, err := store.Create(context.Background(), docstore.Jobs, j); err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func SeedAssignedJob(tb testing.TB, store docstore.Store, title, contractorID string) *domain.Job {
	tb.Helper()
	j := &domain.Job{Title: title, Status: domain.JobStatusAssigned, ContractorID: &contractorID}
	if _, err := store.Create(context.Background(), docstore.Jobs, j); err != nil {
		tb.Fatalf("seed assigned job: %v", err)
	}
	return j
}

func SeedReview(tb testing.TB, store docstore.Store, jobID, contractorID string, status domain.ReviewStatus, parsed ...domain.LineItem) *domain.Review {
	tb.Helper()
	raw, err := domain.EncodeProducts(parsed)
	if err != nil {
		tb.Fatalf("encode parsed data: %v", err)
	}
	r := &domain.Review{
		JobID:        jobID,
		ContractorID: contractorID,
		ImageURL:     "https://storage.googleapis.com/bucket/shelf_images/" + jobID + "/1.jpg",
		Status:       status,
		ParsedData:   raw,
	}
	if status != domain.ReviewStatusPending {
		r.ReviewedData = raw
	}
	if _, err := store.Create(context.Background(), docstore.Reviews, r); err != nil {
		tb.Fatalf("seed review: %v", err)
	}
	return r
}

func AdminSession(id string) *domain.Session {
	return &domain.Session{UserID: id, Role: domain.RoleAdmin, Name: "Admin"}
}

func ContractorSession(id string) *domain.Session {
	return &domain.Session{UserID: id, Role: domain.RoleContractor, Name: "Contractor"}
}
