package reports

import (
	"time"

	"github.com/yungbote/shelfscan-backend/internal/domain"
)

const (
	UnknownJob        = "Unknown Job"
	UnknownContractor = "Unknown Contractor"
)

// Row is one completed review joined with its job and contractor.
type Row struct {
	ReviewID        string              `json:"reviewId"`
	JobID           string              `json:"jobId"`
	JobTitle        string              `json:"jobTitle"`
	JobLocation     string              `json:"jobLocation,omitempty"`
	ContractorID    string              `json:"contractorId"`
	ContractorName  string              `json:"contractorName"`
	Status          domain.ReviewStatus `json:"status"`
	ImageURL        string              `json:"imageUrl"`
	Timestamp       time.Time           `json:"timestamp"`
	AdminReviewedAt *time.Time          `json:"adminReviewedAt,omitempty"`
	Products        []domain.LineItem   `json:"products"`
}

// Header matches the column order of Records.
var Header = []string{"Job Title", "Location", "Contractor", "Status", "Submission Date", "Admin Reviewed", "Product", "Quantity", "Review ID"}

// Records flattens rows to one line per product. A review without products
// still gets one line so it shows up in the export.
func Records(rows []Row) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		adminAt := ""
		if r.AdminReviewedAt != nil {
			adminAt = r.AdminReviewedAt.UTC().Format(time.RFC3339)
		}
		base := []interface{}{r.JobTitle, r.JobLocation, r.ContractorName, string(r.Status), r.Timestamp.UTC().Format(time.RFC3339), adminAt}
		if len(r.Products) == 0 {
			out = append(out, append(append([]interface{}{}, base...), "", "", r.ReviewID))
			continue
		}
		for _, p := range r.Products {
			out = append(out, append(append([]interface{}{}, base...), p.Name, p.Quantity, r.ReviewID))
		}
	}
	return out
}
