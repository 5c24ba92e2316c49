package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusAssigned JobStatus = "assigned"
)

// Job is one unit of shelf-scanning work at a location.
// ContractorID is set iff Status is assigned.
type Job struct {
	ID           string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Title        string    `gorm:"column:title;not null" json:"title"`
	Location     string    `gorm:"column:location" json:"location"`
	Instructions string    `gorm:"column:instructions;type:text" json:"instructions"`
	Status       JobStatus `gorm:"column:status;not null;index" json:"status"`
	ContractorID *string   `gorm:"column:contractor_id;type:varchar(64);index" json:"contractorId"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime;index" json:"createdAt"`
}

func (Job) TableName() string { return "jobs" }

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	return nil
}

func (j Job) DocumentID() string { return j.ID }

func (j Job) Unassigned() bool { return j.ContractorID == nil || *j.ContractorID == "" }

var ErrAssignmentInvariant = errors.New("job contractor must be set iff status is assigned")

// CheckInvariant reports whether the contractor/status pairing is consistent.
func (j Job) CheckInvariant() error {
	switch j.Status {
	case JobStatusAssigned:
		if j.Unassigned() {
			return ErrAssignmentInvariant
		}
	case JobStatusPending:
		if !j.Unassigned() {
			return ErrAssignmentInvariant
		}
	default:
		return errors.New("unknown job status " + string(j.Status))
	}
	return nil
}

// Queue statuses are the ones shown on the admin job queue.
var QueueStatuses = []JobStatus{JobStatusPending, JobStatusAssigned}
