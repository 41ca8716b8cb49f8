package enrichment

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML strips markup and boilerplate from RSS description/content
// fragments before they reach the enrichment capability, the same
// strip-then-extract idea the teacher's internal/ai.go applies to scraped
// article pages, retargeted here at feed HTML fragments instead of full
// web pages.
func CleanHTML(raw string) string {
	if !strings.Contains(raw, "<") {
		return strings.TrimSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	text := doc.Text()
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}
