package stages

import (
	"context"
	"fmt"
	"time"

	"reportplane/internal/pipeline"
)

// SummaryBuilder is the final stage: it compiles the executive summary and
// the technical analysis over everything the earlier stages produced,
// fallbacks included.
type SummaryBuilder struct{}

// Collect builds the summary_data payload.
func (b *SummaryBuilder) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	aiData := in.Output("ai_data")
	reputation := in.Output("reputation_data")

	trustOverall := 5.0
	if aiData != nil {
		if trust, ok := aiData["trust_score"].(map[string]any); ok {
			trustOverall = floatField(trust, "overall")
		}
	}
	avgRating := floatField(reputation, "overall_rating")

	opportunities := 0
	if aiData != nil {
		switch recs := aiData["growth_opportunities"].(type) {
		case []map[string]any:
			opportunities = len(recs)
		case []any:
			opportunities = len(recs)
		}
	}

	company := in.CompanyName
	if company == "" {
		company = in.Domain
	}

	sources := in.OutputKeys()
	failed := collectionErrors(in, sources)

	summaryText := fmt.Sprintf(
		"%s scores %.1f/10 on overall trust with an average customer rating of %.1f/5. "+
			"The analysis identified %d growth opportunities across SEO, social presence, reputation, and competitive positioning.",
		company, trustOverall, avgRating, opportunities,
	)

	return map[string]any{
		"summary_text":         summaryText,
		"trust_score":          trustOverall,
		"avg_rating":           avgRating,
		"growth_opportunities": opportunities,
		"technical_analysis": map[string]any{
			"data_sources_used":  sources,
			"collection_errors":  failed,
			"data_quality_score": dataQualityScore(len(sources), len(failed)),
			"analysis_timestamp": time.Now().Unix(),
		},
	}, nil
}

// collectionErrors lists the output keys holding fallback data, recognized
// by the error field every fallback payload carries.
func collectionErrors(in pipeline.Input, keys []string) []string {
	failed := []string{}
	for _, key := range keys {
		if data := in.Output(key); data != nil {
			if _, ok := data["error"]; ok {
				failed = append(failed, key)
			}
		}
	}
	return failed
}

// dataQualityScore is the percentage of sources that collected real data.
func dataQualityScore(total, failed int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(total-failed) / float64(total) * 100)
}
