package domain

import (
	"github.com/yungbote/shelfscan-backend/internal/domain/activity"
	"github.com/yungbote/shelfscan-backend/internal/domain/auth"
	"github.com/yungbote/shelfscan-backend/internal/domain/jobs"
	"github.com/yungbote/shelfscan-backend/internal/domain/reviews"
	"github.com/yungbote/shelfscan-backend/internal/domain/user"
)

type (
	Job          = jobs.Job
	JobStatus    = jobs.JobStatus
	Review       = reviews.Review
	ReviewStatus = reviews.ReviewStatus
	LineItem     = reviews.LineItem
	ProductData  = reviews.ProductData
	User         = user.Account
	Role         = user.Role
	Session      = auth.Session
	Event        = activity.Event
	EventKind    = activity.Kind
)

const (
	JobStatusPending  = jobs.JobStatusPending
	JobStatusAssigned = jobs.JobStatusAssigned

	ReviewStatusPending       = reviews.ReviewStatusPending
	ReviewStatusReviewed      = reviews.ReviewStatusReviewed
	ReviewStatusAdminReviewed = reviews.ReviewStatusAdminReviewed

	RoleContractor = user.RoleContractor
	RoleAdmin      = user.RoleAdmin

	EventJobCreated       = activity.KindJobCreated
	EventJobAssigned      = activity.KindJobAssigned
	EventReviewCreated    = activity.KindReviewCreated
	EventReviewSubmitted  = activity.KindReviewSubmitted
	EventReviewAdminSaved = activity.KindReviewAdminSaved
)

var (
	EncodeProducts = reviews.EncodeProducts
	DecodeProducts = reviews.DecodeProducts
	CanTransition  = reviews.CanTransition
	SourcesFor     = reviews.SourcesFor

	QueueStatuses  = jobs.QueueStatuses
	ReportStatuses = reviews.ReportStatuses
)

// Models lists every persisted document type, in migration order.
func Models() []interface{} {
	return []interface{}{
		&user.Account{},
		&jobs.Job{},
		&reviews.Review{},
		&activity.Event{},
	}
}
