package analyzer

// recommend derives guidance from the title, description, og:image and
// twitter:card findings, in that order. No other kind produces a
// recommendation, whatever its status.
func recommend(findings []MetaTagFinding) []Recommendation {
	byKind := make(map[TagKind]MetaTagFinding, len(findings))
	for _, f := range findings {
		byKind[f.Kind] = f
	}

	recommendations := make([]Recommendation, 0, 4)

	title := byKind[KindTitle]
	switch title.Status {
	case StatusError:
		recommendations = append(recommendations, Recommendation{
			Severity:    StatusError,
			Title:       "Add a title tag",
			Description: "Every page should have a unique, descriptive title tag. This is critical for SEO.",
			Example:     "<title>Your Primary Keyword | Your Brand Name</title>",
		})
	case StatusWarning:
		recommendations = append(recommendations, Recommendation{
			Severity:    StatusWarning,
			Title:       "Optimize your title tag",
			Description: "Your title " + overOrUnder(title, MaxTitleLength) + " the recommended length. Aim for 50-60 characters.",
			Example:     "<title>Concise, Keyword-Rich Title | Brand Name</title>",
		})
	}

	description := byKind[KindDescription]
	switch description.Status {
	case StatusError:
		recommendations = append(recommendations, Recommendation{
			Severity:    StatusError,
			Title:       "Add a meta description",
			Description: "Meta descriptions provide a summary of your page's content and appear in search results.",
			Example:     `<meta name="description" content="A compelling 150-160 character description that includes your main keywords and encourages clicks." />`,
		})
	case StatusWarning:
		recommendations = append(recommendations, Recommendation{
			Severity:    StatusWarning,
			Title:       "Improve your meta description",
			Description: "Your description " + overOrUnder(description, MaxDescriptionLength) + " the ideal length. Aim for 150-160 characters with relevant keywords.",
			Example:     `<meta name="description" content="A clear, concise summary of your page that includes primary keywords and a call to action within 150-160 characters." />`,
		})
	}

	if byKind[KindOGImage].Status == StatusError {
		recommendations = append(recommendations, Recommendation{
			Severity:    StatusError,
			Title:       "Add an Open Graph image",
			Description: "An Open Graph image is essential for attractive social media sharing. Use a high-quality image of at least 1200x630 pixels.",
			Example: `<meta property="og:image" content="https://example.com/images/og-image.jpg" />
<meta property="og:image:width" content="1200" />
<meta property="og:image:height" content="630" />`,
		})
	}

	if byKind[KindTwitterCard].Status == StatusWarning {
		recommendations = append(recommendations, Recommendation{
			Severity:    StatusWarning,
			Title:       "Add Twitter Card meta tags",
			Description: "Twitter Cards make your content more visually appealing when shared on Twitter.",
			Example: `<meta name="twitter:card" content="summary_large_image" />
<meta name="twitter:site" content="@yourusername" />`,
		})
	}

	return recommendations
}

func overOrUnder(f MetaTagFinding, limit int) string {
	if f.LengthCurrent != nil && *f.LengthCurrent > limit {
		return "exceeds"
	}
	return "is under"
}
