package stages

import (
	"context"
	"math"
	"time"

	"reportplane/internal/pipeline"
)

// ReputationCollector generates the review and rating view. Platform
// listings and ratings are deterministic sample data; production would call
// the review platform APIs behind the same contract.
type ReputationCollector struct{}

var reviewPlatforms = []struct {
	name        string
	probability float64
	minReviews  int
	maxReviews  int
}{
	{"google", 0.9, 5, 500},
	{"trustpilot", 0.5, 3, 300},
	{"yelp", 0.4, 2, 150},
	{"bbb", 0.3, 1, 50},
}

// Collect builds the reputation_data payload.
func (c *ReputationCollector) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	company := in.CompanyName
	if company == "" {
		company = in.Domain
	}

	platforms := map[string]any{}
	var ratings []float64
	totalReviews := 0

	for _, p := range reviewPlatforms {
		s := seed(company, p.name, "listing")
		if !chance(s, p.probability) {
			platforms[p.name] = map[string]any{"listing_found": false}
			continue
		}

		reviews := between(seed(company, p.name, "reviews"), p.minReviews, p.maxReviews)
		// Ratings cluster between 3.0 and 4.9.
		rating := 3.0 + float64(between(seed(company, p.name, "rating"), 0, 19))/10.0

		platforms[p.name] = map[string]any{
			"listing_found": true,
			"review_count":  reviews,
			"rating":        rating,
		}
		ratings = append(ratings, rating)
		totalReviews += reviews
	}

	overall := 0.0
	for _, r := range ratings {
		overall += r
	}
	if len(ratings) > 0 {
		overall = math.Round(overall/float64(len(ratings))*10) / 10
	}

	sentiment := "neutral"
	switch {
	case overall >= 4.2:
		sentiment = "positive"
	case overall > 0 && overall < 3.5:
		sentiment = "negative"
	}

	return map[string]any{
		"domain":               in.Domain,
		"company_name":         company,
		"collection_timestamp": time.Now().Unix(),
		"platforms":            platforms,
		"overall_rating":       overall,
		"total_reviews":        totalReviews,
		"sentiment":            sentiment,
		"recommendations":      reputationRecommendations(overall, totalReviews),
	}, nil
}

func reputationRecommendations(overall float64, totalReviews int) []string {
	var recs []string
	if totalReviews == 0 {
		recs = append(recs, "Claim your business listings and start collecting reviews")
	}
	if totalReviews > 0 && totalReviews < 20 {
		recs = append(recs, "Ask satisfied customers for reviews to build volume")
	}
	if overall > 0 && overall < 4.0 {
		recs = append(recs, "Respond to negative reviews and address recurring complaints")
	}
	return recs
}
