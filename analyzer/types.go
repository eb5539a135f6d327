package analyzer

import "encoding/json"

// TagStatus is the classification outcome of a single meta tag
type TagStatus string

const (
	StatusSuccess TagStatus = "success"
	StatusWarning TagStatus = "warning"
	StatusError   TagStatus = "error"
)

// TagKind identifies one of the analyzed tag kinds
type TagKind int

const (
	KindUnknown TagKind = iota
	KindTitle
	KindDescription
	KindCanonical
	KindViewport
	KindRobots
	KindOGTitle
	KindOGDescription
	KindOGImage
	KindTwitterCard
	KindTwitterImage
)

// MetaTagFinding is the analysis result for one tag kind
type MetaTagFinding struct {
	Kind          TagKind   `json:"-"`
	Name          string    `json:"name"`
	Value         string    `json:"value,omitempty"`
	Status        TagStatus `json:"status"`
	Description   string    `json:"description,omitempty"`
	LengthMax     *int      `json:"lengthMax,omitempty"`
	LengthCurrent *int      `json:"lengthCurrent,omitempty"`
}

// UnmarshalJSON restores Kind from the finding name, which is the only
// identifier carried on the wire.
func (f *MetaTagFinding) UnmarshalJSON(data []byte) error {
	type plain MetaTagFinding
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = MetaTagFinding(p)
	f.Kind = kindByName(f.Name)
	return nil
}

// Recommendation is guidance derived from a non-success finding
type Recommendation struct {
	Severity    TagStatus `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Example     string    `json:"example,omitempty"`
}

// AnalysisReport represents the complete meta tag analysis of a webpage
type AnalysisReport struct {
	URL             string            `json:"url"`
	Title           string            `json:"title,omitempty"`
	Description     string            `json:"description,omitempty"`
	Score           int               `json:"score"`
	MetaTags        []MetaTagFinding  `json:"metaTags"`
	SuccessCount    int               `json:"success"`
	WarningCount    int               `json:"warnings"`
	ErrorCount      int               `json:"errors"`
	Recommendations []Recommendation  `json:"recommendations"`
	OGTags          map[string]string `json:"ogTags"`
	TwitterTags     map[string]string `json:"twitterTags"`
}

// Finding returns the finding of the given kind
func (r *AnalysisReport) Finding(kind TagKind) (MetaTagFinding, bool) {
	for _, f := range r.MetaTags {
		if f.Kind == kind {
			return f, true
		}
	}
	return MetaTagFinding{}, false
}
