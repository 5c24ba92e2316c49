package reviews

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewStatus string

const (
	ReviewStatusPending       ReviewStatus = "pending"
	ReviewStatusReviewed      ReviewStatus = "reviewed"
	ReviewStatusAdminReviewed ReviewStatus = "admin_reviewed"
)

// Review is one OCR extraction for a job, refined first by the contractor and
// then by an admin. ParsedData is written once at creation.
type Review struct {
	ID                string         `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	JobID             string         `gorm:"column:job_id;type:varchar(64);not null;index" json:"jobId"`
	ContractorID      string         `gorm:"column:contractor_id;type:varchar(64);not null;index" json:"contractorId"`
	ImageURL          string         `gorm:"column:image_url;type:text" json:"imageUrl"`
	OCRText           string         `gorm:"column:ocr_text;type:text" json:"ocrText,omitempty"`
	Status            ReviewStatus   `gorm:"column:status;not null;index" json:"status"`
	ParsedData        datatypes.JSON `gorm:"column:parsed_data" json:"parsedData"`
	ReviewedData      datatypes.JSON `gorm:"column:reviewed_data" json:"reviewedData,omitempty"`
	AdminReviewedData datatypes.JSON `gorm:"column:admin_reviewed_data" json:"adminReviewedData,omitempty"`
	AdminReviewedAt   *time.Time     `gorm:"column:admin_reviewed_at" json:"adminReviewedAt,omitempty"`
	Timestamp         time.Time      `gorm:"column:timestamp;not null;autoCreateTime;index" json:"timestamp"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = ReviewStatusPending
	}
	return nil
}

func (r Review) DocumentID() string { return r.ID }

// WorkingCopy seeds an editor with the most refined data available:
// admin reviewed, then contractor reviewed, then parsed.
func (r Review) WorkingCopy() ([]LineItem, error) {
	for _, raw := range []datatypes.JSON{r.AdminReviewedData, r.ReviewedData, r.ParsedData} {
		items, ok, err := DecodeProducts(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			return items, nil
		}
	}
	return []LineItem{}, nil
}

// Final statuses are the ones included in reports.
var ReportStatuses = []ReviewStatus{ReviewStatusReviewed, ReviewStatusAdminReviewed}
