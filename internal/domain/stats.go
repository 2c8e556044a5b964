package domain

// EscrowStats is a read-only aggregation across all escrows for
// dashboard consumption. Purely derived, no write path.
type EscrowStats struct {
	TotalCount     int   `json:"total_count"`
	TotalAmount    int64 `json:"total_amount"`
	PendingCount   int   `json:"pending_count"`
	PendingAmount  int64 `json:"pending_amount"`
	FundedCount    int   `json:"funded_count"`
	FundedAmount   int64 `json:"funded_amount"`
	ReleasedCount  int   `json:"released_count"`
	ReleasedAmount int64 `json:"released_amount"`
	RefundedCount  int   `json:"refunded_count"`
	RefundedAmount int64 `json:"refunded_amount"`
}

// ReleaseRate is the share of settled escrows released to vendors
func (s *EscrowStats) ReleaseRate() float64 {
	settled := s.ReleasedCount + s.RefundedCount
	if settled == 0 {
		return 0
	}
	return float64(s.ReleasedCount) / float64(settled)
}

// RefundRate is the share of settled escrows refunded to buyers
func (s *EscrowStats) RefundRate() float64 {
	settled := s.ReleasedCount + s.RefundedCount
	if settled == 0 {
		return 0
	}
	return float64(s.RefundedCount) / float64(settled)
}
