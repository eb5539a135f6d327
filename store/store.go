// Package store keeps an append-only log of completed analyses.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/seo-optimizer/metatags/analyzer"
)

// DefaultRecentLimit is used by ListRecent when no positive limit is given
const DefaultRecentLimit = 10

// createdAtLayout is ISO-8601 in UTC with millisecond precision
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNotFound is returned when no record matches the lookup
var ErrNotFound = errors.New("analysis not found")

// Record is one completed analysis as it is persisted
type Record struct {
	analyzer.AnalysisReport
	IssueTags   []analyzer.MetaTagFinding `json:"issueTags"`
	WarningTags []analyzer.MetaTagFinding `json:"warningTags"`
	SuccessTags []analyzer.MetaTagFinding `json:"successTags"`
}

// StoredRecord is a Record with its store-assigned id and creation time
type StoredRecord struct {
	ID int64 `json:"id"`
	Record
	CreatedAt string `json:"createdAt"`
}

// Store is an append-only analysis log
type Store interface {
	Append(ctx context.Context, rec Record) (StoredRecord, error)
	ListRecent(ctx context.Context, limit int) ([]StoredRecord, error)
	Get(ctx context.Context, id int64) (StoredRecord, error)
	FindByURL(ctx context.Context, url string) (StoredRecord, error)
	Close() error
}

// NewRecord builds the persisted form of a report, partitioning its
// findings by status.
func NewRecord(report *analyzer.AnalysisReport) Record {
	rec := Record{
		AnalysisReport: cloneReport(*report),
		IssueTags:      []analyzer.MetaTagFinding{},
		WarningTags:    []analyzer.MetaTagFinding{},
		SuccessTags:    []analyzer.MetaTagFinding{},
	}
	for _, f := range rec.MetaTags {
		switch f.Status {
		case analyzer.StatusError:
			rec.IssueTags = append(rec.IssueTags, f)
		case analyzer.StatusWarning:
			rec.WarningTags = append(rec.WarningTags, f)
		case analyzer.StatusSuccess:
			rec.SuccessTags = append(rec.SuccessTags, f)
		}
	}
	return rec
}

// Option configures a store backend
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for createdAt
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}

// sortRecent orders records most recent first; equal timestamps fall back
// to the higher id.
func sortRecent(records []StoredRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339Nano, records[i].CreatedAt)
		tj, _ := time.Parse(time.RFC3339Nano, records[j].CreatedAt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].ID > records[j].ID
	})
}

func cloneReport(r analyzer.AnalysisReport) analyzer.AnalysisReport {
	r.MetaTags = cloneFindings(r.MetaTags)
	r.Recommendations = append([]analyzer.Recommendation{}, r.Recommendations...)
	r.OGTags = cloneMap(r.OGTags)
	r.TwitterTags = cloneMap(r.TwitterTags)
	return r
}

func cloneRecord(rec Record) Record {
	rec.AnalysisReport = cloneReport(rec.AnalysisReport)
	rec.IssueTags = cloneFindings(rec.IssueTags)
	rec.WarningTags = cloneFindings(rec.WarningTags)
	rec.SuccessTags = cloneFindings(rec.SuccessTags)
	return rec
}

func cloneFindings(in []analyzer.MetaTagFinding) []analyzer.MetaTagFinding {
	if in == nil {
		return nil
	}
	out := make([]analyzer.MetaTagFinding, len(in))
	for i, f := range in {
		if f.LengthCurrent != nil {
			v := *f.LengthCurrent
			f.LengthCurrent = &v
		}
		if f.LengthMax != nil {
			v := *f.LengthMax
			f.LengthMax = &v
		}
		out[i] = f
	}
	return out
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
