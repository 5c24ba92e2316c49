package reviews

// Next returns the only status a review may move to from s. An admin
// reviewed review may be saved again, so it maps to itself.
func (s ReviewStatus) Next() (ReviewStatus, bool) {
	switch s {
	case ReviewStatusPending:
		return ReviewStatusReviewed, true
	case ReviewStatusReviewed, ReviewStatusAdminReviewed:
		return ReviewStatusAdminReviewed, true
	default:
		return "", false
	}
}

func CanTransition(from, to ReviewStatus) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s ReviewStatus) Rank() int {
	switch s {
	case ReviewStatusPending:
		return 0
	case ReviewStatusReviewed:
		return 1
	case ReviewStatusAdminReviewed:
		return 2
	default:
		return -1
	}
}

// SourcesFor lists the statuses a review may be in for a transition to to.
func SourcesFor(to ReviewStatus) []ReviewStatus {
	var out []ReviewStatus
	for _, s := range []ReviewStatus{ReviewStatusPending, ReviewStatusReviewed, ReviewStatusAdminReviewed} {
		if CanTransition(s, to) {
			out = append(out, s)
		}
	}
	return out
}
