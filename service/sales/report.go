package sales

// Summary aggregates a day's outcome.
type Summary struct {
	TotalApproved int `json:"total_approved"`
	TotalRejected int `json:"total_rejected"`
	ApprovedSales int `json:"approved_sales"`
	RejectedSales int `json:"rejected_sales"`
}

// SummaryReport is stored at reports/<date>-report.json.
type SummaryReport struct {
	Date    string  `json:"date"`
	Summary Summary `json:"summary"`
}

// RejectedReport is stored at rejected/<date>-rejected.json.
type RejectedReport struct {
	Date          string             `json:"date"`
	RejectedCount int                `json:"rejected_count"`
	TotalAmount   int                `json:"total_amount"`
	Records       []*ProcessedRecord `json:"records"`
}

// NewSummaryReport builds the summary for date.
func NewSummaryReport(date string, approved, rejected []*ProcessedRecord) *SummaryReport {
	return &SummaryReport{
		Date: date,
		Summary: Summary{
			TotalApproved: len(approved),
			TotalRejected: len(rejected),
			ApprovedSales: sumAmount(approved),
			RejectedSales: sumAmount(rejected),
		},
	}
}

// NewRejectedReport builds the rejection detail, or nil when nothing was rejected.
func NewRejectedReport(date string, rejected []*ProcessedRecord) *RejectedReport {
	if len(rejected) == 0 {
		return nil
	}
	return &RejectedReport{
		Date:          date,
		RejectedCount: len(rejected),
		TotalAmount:   sumAmount(rejected),
		Records:       rejected,
	}
}

func sumAmount(records []*ProcessedRecord) int {
	total := 0
	for _, record := range records {
		total += record.Amount
	}
	return total
}
