package logging

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Statistics collects in-process request statistics
type Statistics struct {
	mutex            sync.RWMutex
	uniqueVisitors   map[string]time.Time // IP -> last visit
	analysisRequests int
	errorCount       int
	popularURLs      map[string]int
	totalLoadTime    float64
	devMode          bool
	now              func() time.Time
}

// NewStatistics creates an empty collector. Popular URLs are only reported
// in dev mode.
func NewStatistics(devMode bool) *Statistics {
	return &Statistics{
		uniqueVisitors: make(map[string]time.Time),
		popularURLs:    make(map[string]int),
		devMode:        devMode,
		now:            time.Now,
	}
}

// TrackVisitor records a visit from ip
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.uniqueVisitors[ip] = s.now()
}

// cleanURL reduces a URL to scheme, host and path. Local and API URLs are dropped.
func cleanURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	clean := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		clean += u.Path
	}

	return strings.TrimSuffix(clean, "/")
}

// TrackAnalysis records an analysis request for analyzedURL, which may be
// empty when the request never got as far as a valid URL.
func (s *Statistics) TrackAnalysis(analyzedURL string, loadTimeMs float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.analysisRequests++

	if cleaned := cleanURL(analyzedURL); cleaned != "" {
		s.popularURLs[cleaned]++
	}
	if hasError {
		s.errorCount++
	}
	s.totalLoadTime += loadTimeMs
}

// UniqueVisitors returns the number of distinct visitors in the last 24 hours
func (s *Statistics) UniqueVisitors() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.uniqueVisitorsLocked()
}

func (s *Statistics) uniqueVisitorsLocked() int {
	cutoff := s.now().Add(-24 * time.Hour)
	count := 0
	for _, lastVisit := range s.uniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// URLCount is one entry of the popular URL ranking
type URLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// PopularURLs returns the n most analyzed URLs, most frequent first
func (s *Statistics) PopularURLs(n int) []URLCount {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.popularURLsLocked(n)
}

func (s *Statistics) popularURLsLocked(n int) []URLCount {
	ranking := make([]URLCount, 0, len(s.popularURLs))
	for u, count := range s.popularURLs {
		ranking = append(ranking, URLCount{URL: u, Count: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].URL < ranking[j].URL
	})
	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// ErrorRate returns the share of failed analysis requests as a percentage
func (s *Statistics) ErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRateLocked()
}

func (s *Statistics) errorRateLocked() float64 {
	if s.analysisRequests == 0 {
		return 0
	}
	return float64(s.errorCount) / float64(s.analysisRequests) * 100
}

// Snapshot returns the statistics as served by the API
func (s *Statistics) Snapshot() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	averageLoadTime := 0.0
	if s.analysisRequests > 0 {
		averageLoadTime = s.totalLoadTime / float64(s.analysisRequests)
	}

	snapshot := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitorsLocked(),
		"totalRequests":     s.analysisRequests,
		"errorRate":         s.errorRateLocked(),
		"averageLoadTime":   averageLoadTime,
	}
	if s.devMode {
		snapshot["popularUrls"] = s.popularURLsLocked(5)
	}
	return snapshot
}
