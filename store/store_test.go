package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/metatags/analyzer"
)

type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func testRecord(url string) Record {
	length := 4
	limit := analyzer.MaxTitleLength
	return NewRecord(&analyzer.AnalysisReport{
		URL:   url,
		Title: "Shop",
		Score: 50,
		MetaTags: []analyzer.MetaTagFinding{
			{Kind: analyzer.KindTitle, Name: "Title", Value: "<title>Shop</title>", Status: analyzer.StatusWarning, LengthCurrent: &length, LengthMax: &limit},
			{Kind: analyzer.KindDescription, Name: "Description", Status: analyzer.StatusError},
			{Kind: analyzer.KindCanonical, Name: "Canonical URL", Status: analyzer.StatusSuccess},
		},
		SuccessCount:    1,
		WarningCount:    1,
		ErrorCount:      1,
		Recommendations: []analyzer.Recommendation{{Severity: analyzer.StatusError, Title: "Add a meta description"}},
		OGTags:          map[string]string{"og:title": ""},
		TwitterTags:     map[string]string{"twitter:card": ""},
	})
}

// storeFactory builds a fresh, empty store using the given clock
type storeFactory func(t *testing.T, now func() time.Time) Store

func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("AppendAssignsSequentialIDs", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)

		for i := 1; i <= 3; i++ {
			stored, err := s.Append(ctx, testRecord(fmt.Sprintf("https://example.com/%d", i)))
			require.NoError(t, err)
			assert.Equal(t, int64(i), stored.ID)
		}
	})

	t.Run("CreatedAtIsISO8601", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)

		stored, err := s.Append(ctx, testRecord("https://example.com"))
		require.NoError(t, err)
		assert.Equal(t, "2026-03-01T12:00:00.000Z", stored.CreatedAt)

		_, err = time.Parse(time.RFC3339, stored.CreatedAt)
		assert.NoError(t, err)
	})

	t.Run("ListRecentNewestFirst", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		for i := 1; i <= 5; i++ {
			_, err := s.Append(ctx, testRecord(fmt.Sprintf("https://example.com/%d", i)))
			require.NoError(t, err)
		}

		recent, err := s.ListRecent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, []int64{5, 4, 3}, ids(recent))
		assert.Equal(t, "https://example.com/5", recent[0].URL)
	})

	t.Run("ListRecentDefaultLimit", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		for i := 0; i < DefaultRecentLimit+2; i++ {
			_, err := s.Append(ctx, testRecord("https://example.com"))
			require.NoError(t, err)
		}

		recent, err := s.ListRecent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, recent, DefaultRecentLimit)
		assert.Equal(t, int64(DefaultRecentLimit+2), recent[0].ID)
	})

	t.Run("ListRecentTiesBrokenByID", func(t *testing.T) {
		s := newStore(t, newFakeClock(0).Now)
		for i := 0; i < 3; i++ {
			_, err := s.Append(ctx, testRecord("https://example.com"))
			require.NoError(t, err)
		}

		recent, err := s.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 2, 1}, ids(recent))
	})

	t.Run("ListRecentEmpty", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)

		recent, err := s.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, recent)
	})

	t.Run("GetRoundTrip", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		stored, err := s.Append(ctx, testRecord("https://example.com/shop"))
		require.NoError(t, err)

		got, err := s.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
		assert.Equal(t, stored.CreatedAt, got.CreatedAt)
		assert.Equal(t, "https://example.com/shop", got.URL)
		assert.Equal(t, 50, got.Score)
		require.Len(t, got.MetaTags, 3)
		assert.Equal(t, analyzer.KindTitle, got.MetaTags[0].Kind)
		assert.Equal(t, 4, *got.MetaTags[0].LengthCurrent)
		assert.Len(t, got.IssueTags, 1)
		assert.Len(t, got.WarningTags, 1)
		assert.Len(t, got.SuccessTags, 1)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)

		_, err := s.Get(ctx, 42)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("FindByURLReturnsFirst", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		first, err := s.Append(ctx, testRecord("https://example.com/a"))
		require.NoError(t, err)
		_, err = s.Append(ctx, testRecord("https://example.com/b"))
		require.NoError(t, err)
		_, err = s.Append(ctx, testRecord("https://example.com/a"))
		require.NoError(t, err)

		got, err := s.FindByURL(ctx, "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = s.FindByURL(ctx, "https://example.com/missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ConcurrentAppendsGetDistinctIDs", func(t *testing.T) {
		s := newStore(t, time.Now)
		const n = 50

		var wg sync.WaitGroup
		got := make([]int64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				stored, err := s.Append(ctx, testRecord("https://example.com"))
				if assert.NoError(t, err) {
					got[i] = stored.ID
				}
			}(i)
		}
		wg.Wait()

		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		for i := range got {
			assert.Equal(t, int64(i+1), got[i])
		}
	})
}

func ids(records []StoredRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestNewRecordPartitionsFindings(t *testing.T) {
	rec := testRecord("https://example.com")

	require.Len(t, rec.IssueTags, 1)
	assert.Equal(t, "Description", rec.IssueTags[0].Name)
	require.Len(t, rec.WarningTags, 1)
	assert.Equal(t, "Title", rec.WarningTags[0].Name)
	require.Len(t, rec.SuccessTags, 1)
	assert.Equal(t, "Canonical URL", rec.SuccessTags[0].Name)
}

func TestNewRecordCopiesReport(t *testing.T) {
	report := &analyzer.AnalysisReport{
		URL:         "https://example.com",
		MetaTags:    []analyzer.MetaTagFinding{{Name: "Title", Status: analyzer.StatusSuccess}},
		OGTags:      map[string]string{"og:title": "A"},
		TwitterTags: map[string]string{},
	}
	rec := NewRecord(report)

	report.MetaTags[0].Name = "changed"
	report.OGTags["og:title"] = "changed"

	assert.Equal(t, "Title", rec.MetaTags[0].Name)
	assert.Equal(t, "A", rec.OGTags["og:title"])
}
