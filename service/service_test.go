package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/metatags/stats"
	"github.com/seo-optimizer/metatags/store"
)

const page = `<html><head>
<title>Shop</title>
<link rel="canonical" href="https://example.com/">
<meta name="robots" content="index, follow">
<meta property="og:image" content="https://example.com/img.jpg">
</head><body></body></html>`

type fakeFetcher struct {
	html  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[stats.Outcome]int
}

func newOutcomeCounter() *outcomeCounter {
	return &outcomeCounter{counts: make(map[stats.Outcome]int)}
}

func (o *outcomeCounter) Record(outcome stats.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[outcome]++
}

type failingStore struct {
	store.Store
}

func (failingStore) Append(ctx context.Context, rec store.Record) (store.StoredRecord, error) {
	return store.StoredRecord{}, errors.New("disk full")
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com", true},
		{"http://example.com/page?q=1", true},
		{"", false},
		{"   ", false},
		{"example.com", false},
		{"/relative/path", false},
		{"ftp://example.com/file", false},
		{"https://", false},
		{"http://[::1", false},
	}
	for _, tt := range tests {
		err := ValidateURL(tt.raw)
		if tt.ok {
			assert.NoError(t, err, tt.raw)
			continue
		}
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, tt.raw)
		assert.Equal(t, "url", verr.Field)
		assert.NotEmpty(t, verr.Reason)
	}
}

func TestSubmitAnalysis(t *testing.T) {
	fetcher := &fakeFetcher{html: page}
	st := store.NewMemory()
	outcomes := newOutcomeCounter()
	svc := New(fetcher, st, outcomes, 10, logrus.New())

	report, err := svc.SubmitAnalysis(context.Background(), "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/", report.URL)
	assert.Equal(t, 50, report.Score)
	assert.Equal(t, 1, outcomes.counts[stats.OutcomeAnalyzed])

	recent, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(1), recent[0].ID)
	assert.Equal(t, report.Score, recent[0].Score)

	byID, err := svc.Lookup(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", byID.URL)

	byURL, err := svc.LookupURL(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, int64(1), byURL.ID)
}

func TestSubmitAnalysisRejectsInvalidURL(t *testing.T) {
	fetcher := &fakeFetcher{html: page}
	st := store.NewMemory()
	outcomes := newOutcomeCounter()
	svc := New(fetcher, st, outcomes, 10, logrus.New())

	_, err := svc.SubmitAnalysis(context.Background(), "not a url")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, fetcher.calls, "invalid input must not reach the network")
	assert.Equal(t, 1, outcomes.counts[stats.OutcomeValidationFailed])

	recent, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestSubmitAnalysisFetchFailure(t *testing.T) {
	fetchErr := errors.New("failed to fetch the website: 404 Not Found")
	st := store.NewMemory()
	outcomes := newOutcomeCounter()
	svc := New(&fakeFetcher{err: fetchErr}, st, outcomes, 10, logrus.New())

	report, err := svc.SubmitAnalysis(context.Background(), "https://example.com/missing")

	assert.Nil(t, report)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, outcomes.counts[stats.OutcomeFetchFailed])

	recent, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestSubmitAnalysisPersistFailureIsSwallowed(t *testing.T) {
	log, hook := test.NewNullLogger()
	outcomes := newOutcomeCounter()
	svc := New(&fakeFetcher{html: page}, failingStore{}, outcomes, 10, log)

	report, err := svc.SubmitAnalysis(context.Background(), "https://example.com/")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 50, report.Score)

	assert.Equal(t, 1, outcomes.counts[stats.OutcomeAnalyzed])
	assert.Equal(t, 1, outcomes.counts[stats.OutcomePersistFailed])

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "https://example.com/", entry.Data["url"])
}

func TestSubmitAnalysisPersistsAfterCancel(t *testing.T) {
	st := store.NewMemory()
	svc := New(&fakeFetcher{html: page}, st, newOutcomeCounter(), 10, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the fake fetcher ignores ctx, so only persistence sees the cancellation
	_, err := svc.SubmitAnalysis(ctx, "https://example.com/")
	require.NoError(t, err)

	recent, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRecentUsesConfiguredLimit(t *testing.T) {
	st := store.NewMemory()
	svc := New(&fakeFetcher{html: page}, st, newOutcomeCounter(), 2, logrus.New())

	for i := 0; i < 3; i++ {
		_, err := svc.SubmitAnalysis(context.Background(), "https://example.com/")
		require.NoError(t, err)
	}

	recent, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	recent, err = svc.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
