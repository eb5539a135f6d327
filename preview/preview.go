// Package preview turns an analysis report into the view model shown to
// users: status badges, a score band, a Google result mockup, social cards
// and the tab layout.
package preview

import (
	"net/url"

	"github.com/seo-optimizer/metatags/analyzer"
)

// Fallbacks for values the page does not provide
const (
	DefaultTitle       = "Untitled Page"
	DefaultDescription = "No description provided"
	DefaultDomain      = "example.com"
	DefaultImage       = "https://via.placeholder.com/1200x630?text=No+Image+Provided"
	DefaultCardType    = "summary"
)

// Style is how a status is rendered
type Style struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var (
	styles = map[analyzer.TagStatus]Style{
		analyzer.StatusSuccess: {Label: "Good", Color: "green", Icon: "check_circle"},
		analyzer.StatusWarning: {Label: "Improve", Color: "yellow", Icon: "warning"},
		analyzer.StatusError:   {Label: "Fix", Color: "red", Icon: "error"},
	}
	unknownStyle = Style{Label: "Unknown", Color: "gray", Icon: "help"}

	priorities = map[analyzer.TagStatus]string{
		analyzer.StatusError:   "High priority",
		analyzer.StatusWarning: "Medium priority",
	}
)

// StyleFor returns the rendering of status
func StyleFor(status analyzer.TagStatus) Style {
	if s, ok := styles[status]; ok {
		return s
	}
	return unknownStyle
}

// Band is the verdict attached to a score
type Band struct {
	Label string             `json:"label"`
	Tone  analyzer.TagStatus `json:"tone"`
}

// BandFor maps a score to its band
func BandFor(score int) Band {
	switch {
	case score >= 90:
		return Band{Label: "Excellent", Tone: analyzer.StatusSuccess}
	case score >= 70:
		return Band{Label: "Good", Tone: analyzer.StatusWarning}
	case score >= 50:
		return Band{Label: "Fair", Tone: analyzer.StatusError}
	default:
		return Band{Label: "Poor", Tone: analyzer.StatusError}
	}
}

// Tab is one section of the results view
type Tab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Tabs lists the result sections in display order
var Tabs = []Tab{
	{ID: "meta-tags", Label: "Meta Tags", Icon: "code"},
	{ID: "google-preview", Label: "Google Preview", Icon: "search"},
	{ID: "social-preview", Label: "Social Media Preview", Icon: "share"},
	{ID: "recommendations", Label: "Recommendations", Icon: "lightbulb"},
}

// TagView is a finding with its badge
type TagView struct {
	Name          string             `json:"name"`
	Value         string             `json:"value,omitempty"`
	Status        analyzer.TagStatus `json:"status"`
	Description   string             `json:"description,omitempty"`
	LengthMax     *int               `json:"lengthMax,omitempty"`
	LengthCurrent *int               `json:"lengthCurrent,omitempty"`
	Style         Style              `json:"style"`
}

type RecommendationView struct {
	analyzer.Recommendation
	Priority string `json:"priority"`
	Style    Style  `json:"style"`
}

// Counter is a current/maximum length pair
type Counter struct {
	Current int   `json:"current"`
	Max     int   `json:"max"`
	Style   Style `json:"style"`
}

// SearchResult mocks a Google result entry
type SearchResult struct {
	Title             string  `json:"title"`
	DisplayURL        string  `json:"displayUrl"`
	Description       string  `json:"description"`
	TitleLength       Counter `json:"titleLength"`
	DescriptionLength Counter `json:"descriptionLength"`
}

// Card mocks a social network link preview
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Domain      string `json:"domain"`
	CardType    string `json:"cardType,omitempty"`
}

// Preview is the complete view model of one report
type Preview struct {
	URL             string               `json:"url"`
	Score           int                  `json:"score"`
	Band            Band                 `json:"band"`
	Counts          map[string]int       `json:"counts"`
	Tabs            []Tab                `json:"tabs"`
	MetaTags        []TagView            `json:"metaTags"`
	Google          SearchResult         `json:"google"`
	Facebook        Card                 `json:"facebook"`
	Twitter         Card                 `json:"twitter"`
	Recommendations []RecommendationView `json:"recommendations"`
}

// Build renders report
func Build(report *analyzer.AnalysisReport) Preview {
	p := Preview{
		URL:   report.URL,
		Score: report.Score,
		Band:  BandFor(report.Score),
		Counts: map[string]int{
			string(analyzer.StatusSuccess): report.SuccessCount,
			string(analyzer.StatusWarning): report.WarningCount,
			string(analyzer.StatusError):   report.ErrorCount,
		},
		Tabs:            Tabs,
		MetaTags:        make([]TagView, 0, len(report.MetaTags)),
		Google:          searchResult(report),
		Facebook:        facebookCard(report),
		Twitter:         twitterCard(report),
		Recommendations: make([]RecommendationView, 0, len(report.Recommendations)),
	}

	for _, f := range report.MetaTags {
		p.MetaTags = append(p.MetaTags, TagView{
			Name:          f.Name,
			Value:         f.Value,
			Status:        f.Status,
			Description:   f.Description,
			LengthMax:     f.LengthMax,
			LengthCurrent: f.LengthCurrent,
			Style:         StyleFor(f.Status),
		})
	}
	for _, r := range report.Recommendations {
		priority, ok := priorities[r.Severity]
		if !ok {
			priority = "Low priority"
		}
		p.Recommendations = append(p.Recommendations, RecommendationView{
			Recommendation: r,
			Priority:       priority,
			Style:          StyleFor(r.Severity),
		})
	}
	return p
}

func searchResult(report *analyzer.AnalysisReport) SearchResult {
	return SearchResult{
		Title:             firstNonEmpty(report.Title, DefaultTitle),
		DisplayURL:        DisplayURL(report.URL),
		Description:       firstNonEmpty(report.Description, DefaultDescription),
		TitleLength:       counter(report, analyzer.KindTitle, analyzer.MaxTitleLength),
		DescriptionLength: counter(report, analyzer.KindDescription, analyzer.MaxDescriptionLength),
	}
}

// counter reads the length data of a finding. A missing finding renders as an error.
func counter(report *analyzer.AnalysisReport, kind analyzer.TagKind, defaultMax int) Counter {
	c := Counter{Max: defaultMax, Style: StyleFor(analyzer.StatusError)}

	f, ok := report.Finding(kind)
	if !ok {
		return c
	}
	c.Style = StyleFor(f.Status)
	if f.LengthCurrent != nil {
		c.Current = *f.LengthCurrent
	}
	if f.LengthMax != nil {
		c.Max = *f.LengthMax
	}
	return c
}

func facebookCard(report *analyzer.AnalysisReport) Card {
	og := report.OGTags
	return Card{
		Title:       firstNonEmpty(og["og:title"], report.Title, DefaultTitle),
		Description: firstNonEmpty(og["og:description"], report.Description, DefaultDescription),
		Image:       firstNonEmpty(og["og:image"], DefaultImage),
		Domain:      Domain(report.URL),
	}
}

func twitterCard(report *analyzer.AnalysisReport) Card {
	og, tw := report.OGTags, report.TwitterTags
	return Card{
		Title:       firstNonEmpty(tw["twitter:title"], og["og:title"], report.Title, DefaultTitle),
		Description: firstNonEmpty(tw["twitter:description"], og["og:description"], report.Description, DefaultDescription),
		Image:       firstNonEmpty(tw["twitter:image"], og["og:image"]),
		Domain:      Domain(report.URL),
		CardType:    firstNonEmpty(tw["twitter:card"], DefaultCardType),
	}
}

// Domain returns the host of rawURL, or rawURL itself when it does not parse
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return firstNonEmpty(rawURL, DefaultDomain)
	}
	return u.Hostname()
}

// DisplayURL formats rawURL the way search results show it: host followed
// by the path, with a bare "/" path omitted.
func DisplayURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return firstNonEmpty(rawURL, DefaultDomain)
	}
	if u.Path == "/" {
		return u.Hostname()
	}
	return u.Hostname() + u.Path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
