package stages

import (
	"context"
	"math"

	"reportplane/internal/pipeline"
)

// AIAnalyzer runs the scoring half of the pipeline: the trust score over
// everything collected so far, plus prioritized growth recommendations.
// Both land under the single ai_data output key.
type AIAnalyzer struct{}

// Trust score component weights. They sum to 1.0.
var trustWeights = map[string]float64{
	"website":    0.25,
	"seo":        0.25,
	"social":     0.20,
	"reputation": 0.30,
}

// Collect builds the ai_data payload.
func (a *AIAnalyzer) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	website := in.Output("website_data")
	seoData := in.Output("seo_data")
	social := in.Output("social_data")
	reputation := in.Output("reputation_data")

	breakdown := map[string]any{
		"website":    round1(scoreWebsite(website)),
		"seo":        round1(scoreSEO(seoData)),
		"social":     round1(scoreSocial(social)),
		"reputation": round1(scoreReputation(reputation)),
	}

	overall := 0.0
	for component, weight := range trustWeights {
		overall += breakdown[component].(float64) * weight
	}

	return map[string]any{
		"trust_score": map[string]any{
			"overall":   round1(math.Min(overall, 10)),
			"breakdown": breakdown,
			"weights":   trustWeights,
		},
		"growth_opportunities": growthOpportunities(in, breakdown),
	}, nil
}

// scoreWebsite rates technical legitimacy and transparency signals, 0..10.
func scoreWebsite(website map[string]any) float64 {
	if website == nil {
		return 0
	}
	score := 0.0
	if boolField(website, "has_ssl") {
		score += 2.5
	}
	if boolField(website, "has_favicon") {
		score += 0.5
	}
	if stringField(website, "canonical_url") != "" {
		score += 0.5
	}
	if boolField(website, "mobile_optimized") {
		score += 1.5
	}
	if contact, ok := website["contact_info"].(map[string]any); ok {
		if boolField(contact, "has_email") {
			score += 1.0
		}
		if boolField(contact, "has_phone") {
			score += 1.0
		}
		if boolField(contact, "has_privacy_policy") {
			score += 1.0
		}
		if boolField(contact, "has_terms") {
			score += 0.5
		}
	}
	if wc := intField(website, "word_count"); wc >= 300 {
		score += 1.5
	} else if wc > 0 {
		score += 0.5
	}
	return math.Min(score, 10)
}

// scoreSEO averages the synthesized lighthouse-style scores down to 0..10.
func scoreSEO(seoData map[string]any) float64 {
	if seoData == nil {
		return 0
	}
	speed, ok := seoData["page_speed"].(map[string]any)
	if !ok {
		return 0
	}
	sum, n := 0, 0
	for _, key := range []string{"performance_score", "seo_score", "accessibility_score", "best_practices_score"} {
		if v := intField(speed, key); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) / 10
}

func scoreSocial(social map[string]any) float64 {
	if social == nil {
		return 0
	}
	summary, ok := social["summary"].(map[string]any)
	if !ok {
		return 0
	}
	return float64(intField(summary, "social_score"))
}

func scoreReputation(reputation map[string]any) float64 {
	if reputation == nil {
		return 0
	}
	rating := floatField(reputation, "overall_rating")
	// 5-star scale to 0..10.
	return math.Min(rating*2, 10)
}

// growthOpportunities merges per-stage recommendations into one prioritized
// list. Weak components rank their items higher.
func growthOpportunities(in pipeline.Input, breakdown map[string]any) []map[string]any {
	var out []map[string]any

	appendRecs := func(key, category string, score float64) {
		data := in.Output(key)
		if data == nil {
			return
		}
		priority := "low"
		switch {
		case score < 4:
			priority = "high"
		case score < 7:
			priority = "medium"
		}
		for _, rec := range stringSlice(data["recommendations"]) {
			out = append(out, map[string]any{
				"category":       category,
				"priority":       priority,
				"recommendation": rec,
			})
		}
		for _, rec := range stringSlice(data["seo_recommendations"]) {
			out = append(out, map[string]any{
				"category":       category,
				"priority":       priority,
				"recommendation": rec,
			})
		}
	}

	appendRecs("seo_data", "seo", breakdown["seo"].(float64))
	appendRecs("social_data", "social", breakdown["social"].(float64))
	appendRecs("reputation_data", "reputation", breakdown["reputation"].(float64))
	appendRecs("competitor_data", "competitive", 5)

	if out == nil {
		out = []map[string]any{}
	}
	return out
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		var out []string
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func floatField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
