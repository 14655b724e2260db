package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"reportplane/internal/pipeline"
)

// CompetitorCollector generates the competitive landscape view. Competitor
// discovery derives from the SEO stage's top keywords plus the target
// domain, with deterministic traffic and strength figures; production would
// query a search intelligence API behind the same contract.
type CompetitorCollector struct{}

// Collect builds the competitor_data payload.
func (c *CompetitorCollector) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	keywords := topKeywords(in.Output("seo_data"), 5)

	var competitors []map[string]any
	seen := map[string]bool{in.Domain: true}

	add := func(domain, source string) {
		if domain == "" || seen[domain] {
			return
		}
		seen[domain] = true
		s := seed(domain)
		competitors = append(competitors, map[string]any{
			"domain":            domain,
			"source":            source,
			"estimated_traffic": between(seed(domain, "traffic"), 5000, 90000),
			"keyword_overlap":   between(seed(domain, "overlap"), 30, 80),
			"competition_level": []string{"high", "medium", "low"}[s%3],
		})
	}

	for _, kw := range keywords {
		add(fmt.Sprintf("%s-solutions.com", sanitizeLabel(kw)), "keyword")
		add(fmt.Sprintf("best%s.com", sanitizeLabel(kw)), "keyword")
	}
	// Industry stand-ins derived from the target's own label.
	label := domainLabel(in.Domain)
	add(fmt.Sprintf("%s-pro.com", label), "industry")
	add(fmt.Sprintf("get%s.com", label), "industry")

	sort.Slice(competitors, func(i, j int) bool {
		ti := competitors[i]["estimated_traffic"].(int)
		tj := competitors[j]["estimated_traffic"].(int)
		if ti != tj {
			return ti > tj
		}
		return competitors[i]["domain"].(string) < competitors[j]["domain"].(string)
	})
	if len(competitors) > 8 {
		competitors = competitors[:8]
	}

	ownTraffic := between(seed(in.Domain, "traffic"), 3000, 18000)
	position := marketPosition(ownTraffic, competitors)

	return map[string]any{
		"domain":               in.Domain,
		"collection_timestamp": time.Now().Unix(),
		"keywords_used":        keywords,
		"competitors":          competitors,
		"market_position":      position,
		"recommendations":      competitorRecommendations(position),
	}, nil
}

// topKeywords pulls up to n ranked keywords from the SEO stage output.
func topKeywords(seoData map[string]any, n int) []string {
	if seoData == nil {
		return nil
	}
	density, ok := seoData["keyword_density"].(map[string]any)
	if !ok {
		return nil
	}

	// keyword_order preserves rank; top_keywords alone loses it.
	switch order := density["keyword_order"].(type) {
	case []string:
		if len(order) > n {
			return order[:n]
		}
		return order
	case []any:
		var out []string
		for _, v := range order {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
			if len(out) == n {
				break
			}
		}
		return out
	}
	return nil
}

func marketPosition(ownTraffic int, competitors []map[string]any) map[string]any {
	if len(competitors) == 0 {
		return map[string]any{
			"rank":              1,
			"total_players":     1,
			"estimated_traffic": ownTraffic,
			"position":          "unknown",
		}
	}

	rank := 1
	sum := 0
	for _, comp := range competitors {
		t := comp["estimated_traffic"].(int)
		sum += t
		if t > ownTraffic {
			rank++
		}
	}
	avg := sum / len(competitors)

	position := "follower"
	if rank == 1 {
		position = "leader"
	} else if rank <= (len(competitors)+1)/2 {
		position = "challenger"
	}

	return map[string]any{
		"rank":                       rank,
		"total_players":              len(competitors) + 1,
		"estimated_traffic":          ownTraffic,
		"competitor_average_traffic": avg,
		"position":                   position,
	}
}

func competitorRecommendations(position map[string]any) []string {
	var recs []string
	switch position["position"] {
	case "follower":
		recs = append(recs,
			"Target long-tail keywords where larger competitors are weak",
			"Differentiate on a niche the market leaders underserve")
	case "challenger":
		recs = append(recs, "Close the content gap with the market leader's top pages")
	case "leader":
		recs = append(recs, "Defend branded keywords and expand into adjacent topics")
	}
	return recs
}

func sanitizeLabel(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.ToLower(s))
}

func domainLabel(domain string) string {
	label := domain
	if idx := strings.IndexByte(label, '.'); idx > 0 {
		label = label[:idx]
	}
	return sanitizeLabel(label)
}
