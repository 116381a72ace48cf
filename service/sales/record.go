// Package sales holds the daily sales domain processed by the approval
// pipeline: records, CSV files, batching and reports.
package sales

import (
	"fmt"
	"time"
)

// HighValueThreshold is the amount from which a record needs approval.
const HighValueThreshold = 1000000

// DateLayout is the layout of a sales date.
const DateLayout = "2006-01-02"

// Record is a single sale.
type Record struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	Product      string `json:"product"`
	Amount       int    `json:"amount"`
	Quantity     int    `json:"quantity"`
	Region       string `json:"region"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
}

// ProcessedRecord is a record with tax applied.
type ProcessedRecord struct {
	Record
	Tax       int  `json:"tax"`
	Total     int  `json:"total"`
	Processed bool `json:"processed"`
}

// Process computes tax (10%) and total, both truncated to whole units.
func Process(record *Record) *ProcessedRecord {
	amount := float64(record.Amount)
	return &ProcessedRecord{
		Record:    *record,
		Tax:       int(amount * 0.1),
		Total:     int(amount * 1.1),
		Processed: true,
	}
}

// ProcessAll processes a batch.
func ProcessAll(records []*Record) []*ProcessedRecord {
	ret := make([]*ProcessedRecord, len(records))
	for i, record := range records {
		ret[i] = Process(record)
	}
	return ret
}

// ValidateDate checks date is YYYY-MM-DD.
func ValidateDate(date string) error {
	if date == "" {
		return fmt.Errorf("date is required")
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}
