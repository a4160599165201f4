package enums

// ReviewStatus tracks admin review of merchant-submitted records.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

var validReviewStatuses = []ReviewStatus{
	ReviewStatusPending,
	ReviewStatusApproved,
	ReviewStatusRejected,
}

// String implements fmt.Stringer.
func (v ReviewStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ReviewStatus.
func (v ReviewStatus) IsValid() bool {
	return oneOf(v, validReviewStatuses)
}

// ParseReviewStatus converts raw input into a ReviewStatus.
func ParseReviewStatus(value string) (ReviewStatus, error) {
	return parseOneOf(value, validReviewStatuses, "review status")
}
