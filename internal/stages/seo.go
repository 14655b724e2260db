package stages

import (
	"context"
	"sort"
	"strings"
	"time"

	"reportplane/internal/pipeline"
)

// SEOCollector derives the SEO view of the report from the website analysis
// plus synthesized performance scores. In production the scores would come
// from the PageSpeed Insights API; here they are a stable function of the
// domain so repeated runs agree.
type SEOCollector struct{}

// Collect builds the seo_data payload.
func (c *SEOCollector) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	website := in.Output("website_data")

	density := keywordDensity(website)

	return map[string]any{
		"url":                  in.URL,
		"collection_timestamp": time.Now().Unix(),

		"title":         stringField(website, "title"),
		"description":   stringField(website, "description"),
		"keywords":      stringField(website, "keywords"),
		"canonical_url": stringField(website, "canonical_url"),

		"page_speed": map[string]any{
			"performance_score":    between(seed(in.Domain, "performance"), 35, 95),
			"accessibility_score":  between(seed(in.Domain, "accessibility"), 50, 98),
			"best_practices_score": between(seed(in.Domain, "best_practices"), 45, 95),
			"seo_score":            between(seed(in.Domain, "seo"), 40, 99),
		},
		"mobile_friendly": map[string]any{
			"mobile_friendly": boolField(website, "mobile_optimized"),
		},

		"ssl_certificate": boolField(website, "has_ssl"),

		"word_count":        website["word_count"],
		"heading_structure": website["heading_structure"],
		"images_analysis":   website["images"],
		"social_tags":       website["social_tags"],

		"keyword_density":     density,
		"seo_recommendations": seoRecommendations(website, density),
	}, nil
}

// keywordDensity counts word frequency over the title, description, and
// headings, skipping stop words.
func keywordDensity(website map[string]any) map[string]any {
	var b strings.Builder
	b.WriteString(stringField(website, "title"))
	b.WriteByte(' ')
	b.WriteString(stringField(website, "description"))
	b.WriteByte(' ')
	b.WriteString(stringField(website, "keywords"))

	if headings, ok := website["heading_structure"].(map[string]any); ok {
		for _, v := range headings {
			switch texts := v.(type) {
			case []string:
				for _, t := range texts {
					b.WriteByte(' ')
					b.WriteString(t)
				}
			case []any:
				for _, t := range texts {
					if s, ok := t.(string); ok {
						b.WriteByte(' ')
						b.WriteString(s)
					}
				}
			}
		}
	}

	counts := map[string]int{}
	total := 0
	for _, raw := range strings.Fields(strings.ToLower(b.String())) {
		word := strings.Trim(raw, ".,:;!?()[]\"'|,-")
		if len(word) < 4 || stopWords[word] {
			continue
		}
		counts[word]++
		total++
	}

	type kw struct {
		word  string
		count int
	}
	ranked := make([]kw, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, kw{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	top := map[string]any{}
	order := make([]string, 0, 10)
	for i, k := range ranked {
		if i >= 10 {
			break
		}
		top[k.word] = k.count
		order = append(order, k.word)
	}

	return map[string]any{
		"top_keywords":  top,
		"keyword_order": order,
		"total_words":   total,
	}
}

var stopWords = map[string]bool{
	"with": true, "that": true, "this": true, "from": true, "your": true,
	"have": true, "more": true, "will": true, "about": true, "their": true,
	"what": true, "when": true, "where": true, "which": true, "them": true,
}

func seoRecommendations(website map[string]any, density map[string]any) []string {
	var recs []string

	if stringField(website, "title") == "" {
		recs = append(recs, "Add a descriptive page title")
	} else if len(stringField(website, "title")) > 60 {
		recs = append(recs, "Shorten the page title to under 60 characters")
	}
	if stringField(website, "description") == "" {
		recs = append(recs, "Add a meta description to improve click-through rates")
	}
	if stringField(website, "canonical_url") == "" {
		recs = append(recs, "Declare a canonical URL to avoid duplicate content issues")
	}
	if !boolField(website, "has_ssl") {
		recs = append(recs, "Serve the site over HTTPS")
	}
	if !boolField(website, "mobile_optimized") {
		recs = append(recs, "Add a viewport meta tag for mobile devices")
	}
	if wc, ok := website["word_count"].(int); ok && wc < 300 {
		recs = append(recs, "Increase page content; thin pages rank poorly")
	}
	if images, ok := website["images"].(map[string]any); ok {
		if missing, ok := images["without_alt_text"].(int); ok && missing > 0 {
			recs = append(recs, "Add alt text to all images")
		}
	}
	return recs
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}
