package stages

import (
	"context"
	"strings"
	"time"

	"reportplane/internal/pipeline"
)

// SocialCollector generates the social media presence view. Account
// discovery and metrics are deterministic sample data keyed by company and
// platform; a production deployment would swap in the platform APIs without
// touching the pipeline.
type SocialCollector struct{}

var socialPlatforms = []struct {
	name        string
	probability float64
	minFollow   int
	maxFollow   int
}{
	{"facebook", 0.8, 200, 40000},
	{"instagram", 0.7, 500, 50000},
	{"linkedin", 0.6, 100, 20000},
	{"twitter", 0.5, 100, 30000},
	{"youtube", 0.3, 50, 10000},
}

// Collect builds the social_data payload.
func (c *SocialCollector) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	company := in.CompanyName
	if company == "" {
		if website := in.Output("website_data"); website != nil {
			company = stringField(website, "company_name")
		}
	}
	if company == "" {
		company = in.Domain
	}
	handle := strings.ToLower(strings.ReplaceAll(company, " ", ""))

	platforms := map[string]any{}
	totalFollowers := 0
	active := 0

	for _, p := range socialPlatforms {
		s := seed(company, p.name)
		if !chance(s, p.probability) {
			platforms[p.name] = map[string]any{"account_found": false}
			continue
		}

		followers := between(seed(p.name, company, "followers"), p.minFollow, p.maxFollow)
		posts := between(seed(p.name, company, "posts"), 10, 1000)
		engagement := float64(between(seed(p.name, company, "engagement"), 5, 85)) / 10.0

		platforms[p.name] = map[string]any{
			"account_found":   true,
			"handle":          handle,
			"followers":       followers,
			"posts":           posts,
			"engagement_rate": engagement,
		}
		totalFollowers += followers
		active++
	}

	score := active * 2
	if totalFollowers > 10000 {
		score += 2
	} else if totalFollowers > 1000 {
		score++
	}
	if score > 10 {
		score = 10
	}

	return map[string]any{
		"domain":               in.Domain,
		"company_name":         company,
		"collection_timestamp": time.Now().Unix(),
		"platforms":            platforms,
		"summary": map[string]any{
			"total_followers":  totalFollowers,
			"active_platforms": active,
			"social_score":     score,
		},
		"recommendations": socialRecommendations(active, totalFollowers),
	}, nil
}

func socialRecommendations(active, totalFollowers int) []string {
	var recs []string
	if active == 0 {
		recs = append(recs, "Establish a presence on at least one major social platform")
	}
	if active > 0 && active < 3 {
		recs = append(recs, "Expand to additional social platforms to widen reach")
	}
	if totalFollowers < 1000 {
		recs = append(recs, "Grow your audience with a consistent posting schedule")
	}
	return recs
}
