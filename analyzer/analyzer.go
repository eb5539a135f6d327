package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Recommended length bounds, counted in characters
const (
	MaxTitleLength         = 60
	MinTitleLength         = 10
	MaxDescriptionLength   = 160
	MinDescriptionLength   = 50
	MaxOGTitleLength       = 60
	MaxOGDescriptionLength = 160
)

// Score penalties
const (
	warningPenalty = 5
	errorPenalty   = 15
)

var kindNames = map[TagKind]string{
	KindTitle:         "Title",
	KindDescription:   "Description",
	KindCanonical:     "Canonical URL",
	KindViewport:      "Viewport",
	KindRobots:        "Robots",
	KindOGTitle:       "Open Graph Title",
	KindOGDescription: "Open Graph Description",
	KindOGImage:       "Open Graph Image",
	KindTwitterCard:   "Twitter Card",
	KindTwitterImage:  "Twitter Image",
}

func (k TagKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

func kindByName(name string) TagKind {
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return KindUnknown
}

// OGProperties are the Open Graph properties captured into AnalysisReport.OGTags
var OGProperties = []string{"og:title", "og:description", "og:image", "og:url", "og:type"}

// TwitterProperties are the Twitter Card names captured into AnalysisReport.TwitterTags
var TwitterProperties = []string{"twitter:card", "twitter:title", "twitter:description", "twitter:image", "twitter:site"}

var twitterCardTypes = map[string]bool{
	"summary":             true,
	"summary_large_image": true,
	"app":                 true,
	"player":              true,
}

// pageTags holds the raw values pulled out of the document
type pageTags struct {
	title       string
	description string
	canonical   string
	viewport    string
	robots      string
	og          map[string]string
	twitter     map[string]string
}

func extractTags(doc *goquery.Document) pageTags {
	tags := pageTags{
		title:       strings.TrimSpace(doc.Find("title").First().Text()),
		description: attr(doc, `meta[name="description"]`, "content"),
		canonical:   attr(doc, `link[rel="canonical"]`, "href"),
		viewport:    attr(doc, `meta[name="viewport"]`, "content"),
		robots:      attr(doc, `meta[name="robots"]`, "content"),
		og:          make(map[string]string, len(OGProperties)),
		twitter:     make(map[string]string, len(TwitterProperties)),
	}

	for _, property := range OGProperties {
		tags.og[property] = attr(doc, `meta[property="`+property+`"]`, "content")
	}
	for _, name := range TwitterProperties {
		tags.twitter[name] = attr(doc, `meta[name="`+name+`"]`, "content")
	}

	return tags
}

// attr returns the attribute of the first element matching selector, or ""
func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return value
}

// Analyze classifies the meta tags of a parsed document. Missing or
// malformed tags are reported as findings; there is no failure path.
func Analyze(doc *goquery.Document, sourceURL string) *AnalysisReport {
	tags := extractTags(doc)

	findings := []MetaTagFinding{
		classifyTitle(tags.title),
		classifyDescription(tags.description),
		classifyCanonical(tags.canonical),
		classifyViewport(tags.viewport),
		classifyRobots(tags.robots),
		classifyOGTitle(tags.og["og:title"]),
		classifyOGDescription(tags.og["og:description"]),
		classifyOGImage(tags.og["og:image"]),
		classifyTwitterCard(tags.twitter["twitter:card"]),
		classifyTwitterImage(tags.twitter["twitter:image"]),
	}

	c := tally(findings, tags.og["og:image"])

	return &AnalysisReport{
		URL:             sourceURL,
		Title:           tags.title,
		Description:     tags.description,
		Score:           ComputeScore(c.warnings, c.errors),
		MetaTags:        findings,
		SuccessCount:    c.success,
		WarningCount:    c.warnings,
		ErrorCount:      c.errors,
		Recommendations: recommend(findings),
		OGTags:          tags.og,
		TwitterTags:     tags.twitter,
	}
}

type counts struct {
	success  int
	warnings int
	errors   int
}

// tally folds finding statuses into counts. A missing twitter:image is the
// one exception to one-finding-one-count: Twitter falls back to og:image, so
// its warning is only counted when og:image is missing as well.
func tally(findings []MetaTagFinding, ogImage string) counts {
	var c counts
	for _, f := range findings {
		if f.Kind == KindTwitterImage && f.Status == StatusWarning && ogImage != "" {
			continue
		}
		switch f.Status {
		case StatusSuccess:
			c.success++
		case StatusWarning:
			c.warnings++
		case StatusError:
			c.errors++
		}
	}
	return c
}

// ComputeScore returns 100 minus the warning and error penalties, clamped to [0, 100]
func ComputeScore(warnings, errors int) int {
	score := 100 - warningPenalty*warnings - errorPenalty*errors
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func intPtr(v int) *int {
	return &v
}

func markup(format, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(format, value)
}

func finding(kind TagKind, value string, status TagStatus, description string) MetaTagFinding {
	return MetaTagFinding{
		Kind:        kind,
		Name:        kind.String(),
		Value:       value,
		Status:      status,
		Description: description,
	}
}

func withLength(f MetaTagFinding, current, limit int) MetaTagFinding {
	f.LengthCurrent = intPtr(current)
	f.LengthMax = intPtr(limit)
	return f
}

func classifyTitle(title string) MetaTagFinding {
	n := length(title)
	value := markup("<title>%s</title>", title)

	var f MetaTagFinding
	switch {
	case title == "":
		f = finding(KindTitle, value, StatusError, "The title tag is missing.")
	case n > MaxTitleLength:
		f = finding(KindTitle, value, StatusWarning, fmt.Sprintf(
			"Title is too long (%d characters). Recommended maximum length is %d characters.", n, MaxTitleLength))
	case n < MinTitleLength:
		f = finding(KindTitle, value, StatusWarning, fmt.Sprintf(
			"Title is too short (%d characters). Recommended minimum length is %d characters.", n, MinTitleLength))
	default:
		f = finding(KindTitle, value, StatusSuccess, "Title has a good length.")
	}
	return withLength(f, n, MaxTitleLength)
}

func classifyDescription(description string) MetaTagFinding {
	n := length(description)
	value := markup(`<meta name="description" content="%s" />`, description)

	var f MetaTagFinding
	switch {
	case description == "":
		f = finding(KindDescription, value, StatusError, "The meta description tag is missing.")
	case n > MaxDescriptionLength:
		f = finding(KindDescription, value, StatusWarning, fmt.Sprintf(
			"Description is too long (%d characters). Recommended maximum length is %d characters.", n, MaxDescriptionLength))
	case n < MinDescriptionLength:
		f = finding(KindDescription, value, StatusWarning, fmt.Sprintf(
			"Description is too short (%d characters). Recommended minimum length is %d characters.", n, MinDescriptionLength))
	default:
		f = finding(KindDescription, value, StatusSuccess, "Description has a good length.")
	}
	return withLength(f, n, MaxDescriptionLength)
}

func classifyCanonical(canonical string) MetaTagFinding {
	value := markup(`<link rel="canonical" href="%s" />`, canonical)
	switch {
	case canonical == "":
		return finding(KindCanonical, value, StatusWarning, "The canonical URL is missing.")
	case !strings.HasPrefix(canonical, "http"):
		return finding(KindCanonical, value, StatusError, "The canonical URL is invalid. It must be an absolute URL.")
	default:
		return finding(KindCanonical, value, StatusSuccess, "The canonical URL is defined correctly.")
	}
}

func classifyViewport(viewport string) MetaTagFinding {
	value := markup(`<meta name="viewport" content="%s" />`, viewport)
	switch {
	case viewport == "":
		return finding(KindViewport, value, StatusError,
			"The viewport meta tag is missing. This affects rendering on mobile devices.")
	case !strings.Contains(viewport, "width=device-width"):
		return finding(KindViewport, value, StatusWarning,
			"The viewport meta tag should include 'width=device-width' for responsive layout.")
	default:
		return finding(KindViewport, value, StatusSuccess, "The viewport is configured for mobile devices.")
	}
}

func classifyRobots(robots string) MetaTagFinding {
	value := markup(`<meta name="robots" content="%s" />`, robots)
	switch {
	case robots == "":
		return finding(KindRobots, value, StatusWarning,
			"The robots meta tag is missing. This may affect how search engines index the page.")
	case strings.Contains(robots, "noindex"):
		return finding(KindRobots, value, StatusWarning,
			"The page is marked 'noindex', which keeps it out of search results.")
	default:
		return finding(KindRobots, value, StatusSuccess, "The robots meta tag is configured correctly.")
	}
}

func classifyOGTitle(title string) MetaTagFinding {
	n := length(title)
	value := markup(`<meta property="og:title" content="%s" />`, title)

	var f MetaTagFinding
	switch {
	case title == "":
		f = finding(KindOGTitle, value, StatusWarning,
			"The Open Graph title is missing. Social networks may use the title tag instead.")
	case n > MaxOGTitleLength:
		f = finding(KindOGTitle, value, StatusWarning, fmt.Sprintf(
			"The Open Graph title is too long (%d characters). Recommended maximum length is %d characters.", n, MaxOGTitleLength))
	default:
		f = finding(KindOGTitle, value, StatusSuccess, "The Open Graph title is well-defined.")
	}
	return withLength(f, n, MaxOGTitleLength)
}

func classifyOGDescription(description string) MetaTagFinding {
	n := length(description)
	value := markup(`<meta property="og:description" content="%s" />`, description)

	var f MetaTagFinding
	switch {
	case description == "":
		f = finding(KindOGDescription, value, StatusWarning,
			"The Open Graph description is missing. Social networks may use the meta description instead.")
	case n > MaxOGDescriptionLength:
		f = finding(KindOGDescription, value, StatusWarning, fmt.Sprintf(
			"The Open Graph description is too long (%d characters). Recommended maximum length is %d characters.", n, MaxOGDescriptionLength))
	default:
		f = finding(KindOGDescription, value, StatusSuccess, "The Open Graph description is well-defined.")
	}
	return withLength(f, n, MaxOGDescriptionLength)
}

func classifyOGImage(image string) MetaTagFinding {
	value := markup(`<meta property="og:image" content="%s" />`, image)
	switch {
	case image == "":
		return finding(KindOGImage, value, StatusError,
			"The Open Graph image is missing. This is critical for social media sharing.")
	case !strings.HasPrefix(image, "http"):
		return finding(KindOGImage, value, StatusError,
			"The Open Graph image URL should be absolute, not relative.")
	default:
		return finding(KindOGImage, value, StatusSuccess, "The Open Graph image is well-defined.")
	}
}

func classifyTwitterCard(card string) MetaTagFinding {
	value := markup(`<meta name="twitter:card" content="%s" />`, card)
	switch {
	case card == "":
		return finding(KindTwitterCard, value, StatusWarning,
			"The Twitter card type is missing. Twitter will use a default compact card.")
	case !twitterCardTypes[card]:
		return finding(KindTwitterCard, value, StatusWarning, fmt.Sprintf(
			"Unknown Twitter card type: %q. Valid types are: summary, summary_large_image, app, player.", card))
	default:
		return finding(KindTwitterCard, value, StatusSuccess, "The Twitter card is well-defined.")
	}
}

func classifyTwitterImage(image string) MetaTagFinding {
	value := markup(`<meta name="twitter:image" content="%s" />`, image)
	switch {
	case image == "":
		return finding(KindTwitterImage, value, StatusWarning,
			"The Twitter image is missing. Twitter will try to use the Open Graph image instead.")
	case !strings.HasPrefix(image, "http"):
		return finding(KindTwitterImage, value, StatusError,
			"The Twitter image URL should be absolute, not relative.")
	default:
		return finding(KindTwitterImage, value, StatusSuccess, "The Twitter image is well-defined.")
	}
}
