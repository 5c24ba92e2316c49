package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Kind string

const (
	KindJobCreated       Kind = "job_created"
	KindJobAssigned      Kind = "job_assigned"
	KindReviewCreated    Kind = "review_created"
	KindReviewSubmitted  Kind = "review_submitted"
	KindReviewAdminSaved Kind = "review_admin_saved"
)

// Event is an append-only ledger entry for lifecycle transitions.
type Event struct {
	ID         string         `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Kind       Kind           `gorm:"column:kind;not null;index" json:"kind"`
	JobID      string         `gorm:"column:job_id;type:varchar(64);index" json:"jobId"`
	ReviewID   string         `gorm:"column:review_id;type:varchar(64);index" json:"reviewId,omitempty"`
	ActorID    string         `gorm:"column:actor_id;type:varchar(64)" json:"actorId"`
	FromStatus string         `gorm:"column:from_status" json:"fromStatus,omitempty"`
	ToStatus   string         `gorm:"column:to_status" json:"toStatus,omitempty"`
	Data       datatypes.JSON `gorm:"column:data" json:"data,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;autoCreateTime;index" json:"createdAt"`
}

func (Event) TableName() string { return "activity_events" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e Event) DocumentID() string { return e.ID }
