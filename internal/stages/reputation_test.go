package stages

import (
	"context"
	"reflect"
	"testing"

	"reportplane/internal/pipeline"
)

func TestReputationCollector_Deterministic(t *testing.T) {
	c := &ReputationCollector{}
	in := pipeline.NewInput("https://acme.example", "acme.example", "Acme Rockets", nil)

	first, err := c.Collect(context.Background(), in)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	second, err := c.Collect(context.Background(), in)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if !reflect.DeepEqual(first["platforms"], second["platforms"]) {
		t.Error("platform data not stable across runs")
	}
	if first["overall_rating"] != second["overall_rating"] {
		t.Errorf("overall_rating %v vs %v", first["overall_rating"], second["overall_rating"])
	}
}

func TestReputationCollector_RatingsAndSentiment(t *testing.T) {
	c := &ReputationCollector{}
	in := pipeline.NewInput("https://acme.example", "acme.example", "Acme Rockets", nil)

	data, err := c.Collect(context.Background(), in)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	platforms := data["platforms"].(map[string]any)
	listed := 0
	for _, name := range []string{"google", "trustpilot", "yelp", "bbb"} {
		entry, ok := platforms[name].(map[string]any)
		if !ok {
			t.Fatalf("platform %s missing", name)
		}
		if entry["listing_found"] == true {
			listed++
			rating := entry["rating"].(float64)
			if rating < 3.0 || rating > 4.9 {
				t.Errorf("%s rating = %v outside [3.0,4.9]", name, rating)
			}
			if count := entry["review_count"].(int); count <= 0 {
				t.Errorf("%s review_count = %d", name, count)
			}
		}
	}

	overall := data["overall_rating"].(float64)
	if listed == 0 {
		if overall != 0 {
			t.Errorf("overall_rating = %v with no listings", overall)
		}
		if data["sentiment"] != "neutral" {
			t.Errorf("sentiment = %v with no listings", data["sentiment"])
		}
		return
	}
	if overall < 3.0 || overall > 4.9 {
		t.Errorf("overall_rating = %v outside listing range", overall)
	}
	switch sentiment := data["sentiment"]; {
	case overall >= 4.2 && sentiment != "positive":
		t.Errorf("sentiment = %v for rating %v", sentiment, overall)
	case overall < 3.5 && sentiment != "negative":
		t.Errorf("sentiment = %v for rating %v", sentiment, overall)
	case overall >= 3.5 && overall < 4.2 && sentiment != "neutral":
		t.Errorf("sentiment = %v for rating %v", sentiment, overall)
	}
}

func TestReputationRecommendations(t *testing.T) {
	tests := []struct {
		name         string
		overall      float64
		totalReviews int
		want         []string
	}{
		{
			name: "no listings", overall: 0, totalReviews: 0,
			want: []string{"Claim your business listings and start collecting reviews"},
		},
		{
			name: "few reviews and weak rating", overall: 3.2, totalReviews: 8,
			want: []string{
				"Ask satisfied customers for reviews to build volume",
				"Respond to negative reviews and address recurring complaints",
			},
		},
		{
			name: "established and well rated", overall: 4.6, totalReviews: 300,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reputationRecommendations(tt.overall, tt.totalReviews)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("recommendations = %v, want %v", got, tt.want)
			}
		})
	}
}
