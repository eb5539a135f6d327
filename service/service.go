// Package service implements the analysis request flow: validate the URL,
// fetch the page, analyze it and record the result.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/metatags/analyzer"
	"github.com/seo-optimizer/metatags/stats"
	"github.com/seo-optimizer/metatags/store"
)

const persistTimeout = 5 * time.Second

// PageFetcher retrieves and parses a page
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// OutcomeRecorder counts request outcomes
type OutcomeRecorder interface {
	Record(outcome stats.Outcome)
}

// ValidationError reports a rejected input field
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateURL accepts absolute http and https URLs with a host
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{Field: "url", Reason: "is required"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: "is not a valid URL"}
	}
	if !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "url", Reason: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Reason: "must use http or https"}
	}
	return nil
}

// Service runs analyses and serves the stored log
type Service struct {
	fetcher     PageFetcher
	store       store.Store
	outcomes    OutcomeRecorder
	recentLimit int
	log         logrus.FieldLogger
}

// New wires a Service. recentLimit is used when Recent is called without a
// positive limit.
func New(fetcher PageFetcher, st store.Store, outcomes OutcomeRecorder, recentLimit int, log logrus.FieldLogger) *Service {
	if recentLimit <= 0 {
		recentLimit = store.DefaultRecentLimit
	}
	return &Service{
		fetcher:     fetcher,
		store:       st,
		outcomes:    outcomes,
		recentLimit: recentLimit,
		log:         log,
	}
}

// SubmitAnalysis validates rawURL, fetches and analyzes the page, and
// appends the result to the store. A failed append is logged and the
// report is still returned.
func (s *Service) SubmitAnalysis(ctx context.Context, rawURL string) (*analyzer.AnalysisReport, error) {
	log := s.log.WithField("url", rawURL)

	if err := ValidateURL(rawURL); err != nil {
		s.outcomes.Record(stats.OutcomeValidationFailed)
		return nil, err
	}

	doc, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.outcomes.Record(stats.OutcomeFetchFailed)
		log.WithError(err).Warn("fetch failed")
		return nil, err
	}

	report := analyzer.Analyze(doc, rawURL)
	s.outcomes.Record(stats.OutcomeAnalyzed)

	s.persist(ctx, report, log)

	return report, nil
}

func (s *Service) persist(ctx context.Context, report *analyzer.AnalysisReport, log logrus.FieldLogger) {
	// the client may be gone by now; the record is still worth keeping
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	stored, err := s.store.Append(ctx, store.NewRecord(report))
	if err != nil {
		s.outcomes.Record(stats.OutcomePersistFailed)
		log.WithError(err).Error("failed to store analysis")
		return
	}

	log.WithFields(logrus.Fields{
		"id":    stored.ID,
		"score": report.Score,
	}).Info("analysis stored")
}

// Recent returns the most recent stored analyses, newest first
func (s *Service) Recent(ctx context.Context, limit int) ([]store.StoredRecord, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.store.ListRecent(ctx, limit)
}

// Lookup returns one stored analysis by id
func (s *Service) Lookup(ctx context.Context, id int64) (store.StoredRecord, error) {
	return s.store.Get(ctx, id)
}

// LookupURL returns the first stored analysis of pageURL
func (s *Service) LookupURL(ctx context.Context, pageURL string) (store.StoredRecord, error) {
	return s.store.FindByURL(ctx, pageURL)
}
