// Package stages contains the stage collaborators behind the pipeline's
// uniform contract: the website analyzer, the data collectors, the scoring
// analyzers, and the summary builder, plus the fixed registry wiring them
// together.
//
// The collectors that would call paid third-party APIs in production
// (social, reputation, competitor) generate deterministic sample data from
// a hash of their inputs, so the same domain always yields the same report.
package stages

import (
	"hash/fnv"

	"reportplane/internal/pipeline"
)

// Registry returns the fixed, ordered stage list. Stage order is total and
// never reordered; later stages read earlier stages' outputs (real or
// fallback) through the pipeline input.
func Registry() []pipeline.Stage {
	website := NewWebsiteAnalyzer(nil)
	seo := &SEOCollector{}
	social := &SocialCollector{}
	reputation := &ReputationCollector{}
	competitor := &CompetitorCollector{}
	ai := &AIAnalyzer{}
	summary := &SummaryBuilder{}

	return []pipeline.Stage{
		{
			Name:         "website_analysis",
			OutputKey:    "website_data",
			Weight:       10,
			Message:      "Analyzing website structure and content...",
			Collaborator: website,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"url":        in.URL,
					"domain":     in.Domain,
					"error":      err.Error(),
					"has_ssl":    hasHTTPSPrefix(in.URL),
					"title":      "Analysis for " + in.Domain,
					"word_count": 0,
				}
			},
		},
		{
			Name:         "seo_analysis",
			OutputKey:    "seo_data",
			Weight:       15,
			Message:      "Collecting SEO performance data...",
			Collaborator: seo,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"url":   in.URL,
					"error": err.Error(),
					"page_speed": map[string]any{
						"performance_score": 0,
						"seo_score":         0,
					},
					"mobile_friendly": map[string]any{"mobile_friendly": false},
				}
			},
		},
		{
			Name:         "social_analysis",
			OutputKey:    "social_data",
			Weight:       15,
			Message:      "Analyzing social media presence...",
			Collaborator: social,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"domain":    in.Domain,
					"error":     err.Error(),
					"platforms": map[string]any{},
				}
			},
		},
		{
			Name:         "reputation_analysis",
			OutputKey:    "reputation_data",
			Weight:       10,
			Message:      "Checking online reputation and reviews...",
			Collaborator: reputation,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"domain":         in.Domain,
					"error":          err.Error(),
					"overall_rating": 0,
					"reviews":        []any{},
				}
			},
		},
		{
			Name:         "competitor_analysis",
			OutputKey:    "competitor_data",
			Weight:       10,
			Message:      "Analyzing competitive landscape...",
			Collaborator: competitor,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"domain":          in.Domain,
					"error":           err.Error(),
					"competitors":     []any{},
					"market_position": map[string]any{},
				}
			},
		},
		{
			Name:         "ai_analysis",
			OutputKey:    "ai_data",
			Weight:       20,
			Message:      "Running AI-powered analysis...",
			Collaborator: ai,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"trust_score": map[string]any{
						"overall":   5.0,
						"breakdown": map[string]any{},
						"error":     err.Error(),
					},
					"growth_opportunities": []any{},
				}
			},
		},
		{
			Name:         "report_compilation",
			OutputKey:    "summary_data",
			Weight:       10,
			Message:      "Compiling final report and recommendations...",
			Collaborator: summary,
			Fallback: func(in pipeline.Input, err error) map[string]any {
				return map[string]any{
					"summary_text": "Report generated for " + in.Domain + " with basic analysis.",
					"error":        err.Error(),
				}
			},
		},
	}
}

func hasHTTPSPrefix(url string) bool {
	return len(url) >= 8 && url[:8] == "https://"
}

// seed hashes a string to a stable non-negative number. The sample
// collectors use it so the same input always produces the same data.
func seed(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'_'})
	}
	return h.Sum32()
}

// between maps a seed to the inclusive range [lo, hi].
func between(s uint32, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(s%uint32(hi-lo+1))
}

// chance reports whether the seeded input falls under the given probability.
func chance(s uint32, probability float64) bool {
	return float64(s%100) < probability*100
}
