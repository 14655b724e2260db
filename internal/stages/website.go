package stages

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reportplane/internal/pipeline"

	"github.com/PuerkitoBio/goquery"
)

const analyzerUserAgent = "Mozilla/5.0 (compatible; ReportplaneBot/1.0)"

// WebsiteAnalyzer fetches the target page and extracts structural, content,
// and technical signals. It is the only collaborator that talks to the
// outside world.
type WebsiteAnalyzer struct {
	client *http.Client
}

// NewWebsiteAnalyzer creates an analyzer. A nil client gets a default with
// a short timeout; the orchestrator bounds the call regardless.
func NewWebsiteAnalyzer(client *http.Client) *WebsiteAnalyzer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WebsiteAnalyzer{client: client}
}

// Collect analyzes the target website.
func (w *WebsiteAnalyzer) Collect(ctx context.Context, in pipeline.Input) (map[string]any, error) {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", in.URL, err)
	}
	req.Header.Set("User-Agent", analyzerUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("target returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	description := metaContent(doc, "description")
	keywords := metaContent(doc, "keywords")
	canonical, _ := doc.Find(`link[rel="canonical"]`).First().Attr("href")

	text := pageText(doc)
	words := strings.Fields(text)

	links := analyzeLinks(doc, in.URL)
	images := analyzeImages(doc)

	return map[string]any{
		"url":           in.URL,
		"final_url":     resp.Request.URL.String(),
		"status_code":   resp.StatusCode,
		"response_time": time.Since(started).Seconds(),

		"title":         title,
		"description":   description,
		"keywords":      keywords,
		"canonical_url": canonical,

		"has_ssl":     strings.HasPrefix(in.URL, "https://"),
		"has_favicon": doc.Find(`link[rel*="icon"]`).Length() > 0,

		"word_count":        len(words),
		"heading_structure": analyzeHeadings(doc),
		"links":             links,
		"images":            images,

		"social_tags":  socialMetaTags(doc),
		"social_links": findSocialLinks(doc),
		"contact_info": extractContactInfo(doc, text),
		"company_name": extractCompanyName(doc, title, in.Domain),

		"mobile_optimized": doc.Find(`meta[name="viewport"]`).Length() > 0,

		"analysis_timestamp": time.Now().Unix(),
	}, nil
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First().Attr("content")
	return strings.TrimSpace(content)
}

func pageText(doc *goquery.Document) string {
	clone := doc.Selection.Find("body").Clone()
	clone.Find("script, style, noscript").Remove()
	return clone.Text()
}

func analyzeHeadings(doc *goquery.Document) map[string]any {
	headings := make(map[string]any, 6)
	for i := 1; i <= 6; i++ {
		tag := fmt.Sprintf("h%d", i)
		var texts []string
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				texts = append(texts, t)
			}
		})
		headings[tag] = texts
	}
	return headings
}

func analyzeLinks(doc *goquery.Document, base string) map[string]any {
	baseURL, _ := url.Parse(base)
	internal, external := 0, 0

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || ref.Scheme == "mailto" || ref.Scheme == "tel" {
			return
		}
		if ref.Host == "" || (baseURL != nil && ref.Host == baseURL.Host) {
			internal++
		} else {
			external++
		}
	})

	return map[string]any{
		"total_links":    internal + external,
		"internal_links": internal,
		"external_links": external,
	}
}

func analyzeImages(doc *goquery.Document) map[string]any {
	total, withAlt := 0, 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		total++
		if alt, _ := s.Attr("alt"); strings.TrimSpace(alt) != "" {
			withAlt++
		}
	})
	return map[string]any{
		"total_count":      total,
		"with_alt_text":    withAlt,
		"without_alt_text": total - withAlt,
	}
}

func socialMetaTags(doc *goquery.Document) map[string]any {
	tags := map[string]any{}
	doc.Find(`meta[property^="og:"], meta[name^="twitter:"]`).Each(func(_ int, s *goquery.Selection) {
		key, _ := s.Attr("property")
		if key == "" {
			key, _ = s.Attr("name")
		}
		if content, ok := s.Attr("content"); ok && key != "" {
			tags[key] = content
		}
	})
	return tags
}

var socialHosts = []string{"facebook.com", "instagram.com", "twitter.com", "x.com", "linkedin.com", "youtube.com", "tiktok.com"}

func findSocialLinks(doc *goquery.Document) map[string]any {
	found := map[string]any{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		for _, host := range socialHosts {
			if strings.Contains(href, host) {
				platform := strings.TrimSuffix(host, ".com")
				if platform == "x" {
					platform = "twitter"
				}
				if _, ok := found[platform]; !ok {
					found[platform] = href
				}
			}
		}
	})
	return found
}

func extractContactInfo(doc *goquery.Document, text string) map[string]any {
	hasEmail := doc.Find(`a[href^="mailto:"]`).Length() > 0 || strings.Contains(text, "@")
	hasPhone := doc.Find(`a[href^="tel:"]`).Length() > 0

	lower := strings.ToLower(text)
	return map[string]any{
		"has_email":          hasEmail,
		"has_phone":          hasPhone,
		"has_privacy_policy": strings.Contains(lower, "privacy"),
		"has_terms":          strings.Contains(lower, "terms"),
	}
}

// extractCompanyName prefers og:site_name, then the title up to the first
// separator, then the bare domain.
func extractCompanyName(doc *goquery.Document, title, domain string) string {
	if name, ok := doc.Find(`meta[property="og:site_name"]`).First().Attr("content"); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	for _, sep := range []string{" | ", " - ", " – ", " :: "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	if title != "" {
		return title
	}
	return domain
}
