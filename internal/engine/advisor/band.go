package advisor

// Band is the decision outcome tier derived from the probability of default.
type Band string

const (
	BandApprove      Band = "APPROVE"
	BandManualReview Band = "MANUAL_REVIEW"
	BandReject       Band = "REJECT"
)

// Thresholds maps a PD to a band. ApproveBelow is exclusive on the approve
// side; RejectAtOrAbove is inclusive on the reject side, so the review band
// is the half-open interval [ApproveBelow, RejectAtOrAbove).
type Thresholds struct {
	ApproveBelow    float64
	RejectAtOrAbove float64
}

// Classify assigns the band for a probability of default.
func (t Thresholds) Classify(pd float64) Band {
	switch {
	case pd < t.ApproveBelow:
		return BandApprove
	case pd >= t.RejectAtOrAbove:
		return BandReject
	default:
		return BandManualReview
	}
}
