package sales

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Store reads daily sales and writes reports under a base URL.
type Store struct {
	baseURL string
	fs      afs.Service
}

// NewStore creates a store rooted at baseURL, e.g. file:///tmp/durable or
// s3://bucket. A nil fs uses afs.New().
func NewStore(baseURL string, fs afs.Service) *Store {
	if fs == nil {
		fs = afs.New()
	}
	return &Store{baseURL: url.Normalize(baseURL, file.Scheme), fs: fs}
}

// BaseURL returns the store root.
func (s *Store) BaseURL() string {
	return s.baseURL
}

// SalesURL returns the location of the sales file for date.
func (s *Store) SalesURL(date string) string {
	return url.Join(s.baseURL, "sales", date+".csv")
}

// SummaryURL returns the location of the summary report for date.
func (s *Store) SummaryURL(date string) string {
	return url.Join(s.baseURL, "reports", date+"-report.json")
}

// RejectedURL returns the location of the rejection report for date.
func (s *Store) RejectedURL(date string) string {
	return url.Join(s.baseURL, "rejected", date+"-rejected.json")
}

// Fetch reads the sales records of date.
func (s *Store) Fetch(ctx context.Context, date string) ([]*Record, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	location := s.SalesURL(date)
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", location, err)
	}
	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return records, nil
}

// PutSales writes the sales records of date and returns their URL.
func (s *Store) PutSales(ctx context.Context, date string, records []*Record) (string, error) {
	if err := ValidateDate(date); err != nil {
		return "", err
	}
	buffer := &bytes.Buffer{}
	if err := Encode(buffer, records); err != nil {
		return "", fmt.Errorf("failed to encode sales: %w", err)
	}
	location := s.SalesURL(date)
	return location, s.upload(ctx, location, buffer.Bytes())
}

// PutSummary writes report and returns its URL.
func (s *Store) PutSummary(ctx context.Context, report *SummaryReport) (string, error) {
	return s.putJSON(ctx, s.SummaryURL(report.Date), report)
}

// PutRejected writes report and returns its URL.
func (s *Store) PutRejected(ctx context.Context, report *RejectedReport) (string, error) {
	return s.putJSON(ctx, s.RejectedURL(report.Date), report)
}

// LoadSummary reads the summary report of date.
func (s *Store) LoadSummary(ctx context.Context, date string) (*SummaryReport, error) {
	ret := &SummaryReport{}
	return ret, s.loadJSON(ctx, s.SummaryURL(date), ret)
}

// LoadRejected reads the rejection report of date.
func (s *Store) LoadRejected(ctx context.Context, date string) (*RejectedReport, error) {
	ret := &RejectedReport{}
	return ret, s.loadJSON(ctx, s.RejectedURL(date), ret)
}

func (s *Store) putJSON(ctx context.Context, location string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", location, err)
	}
	return location, s.upload(ctx, location, data)
}

func (s *Store) loadJSON(ctx context.Context, location string, v interface{}) error {
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", location, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", location, err)
	}
	return nil
}

func (s *Store) upload(ctx context.Context, location string, data []byte) error {
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", location, err)
	}
	return nil
}
