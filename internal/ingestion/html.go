package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements that never carry research content.
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside",
	"form", "button",
}

var htmlTagPattern = regexp.MustCompile(`(?is)<(?:html|body|div|p|span|table|article|section)[\s>]`)

// LooksLikeHTML reports whether raw input is a scraped HTML page rather than
// pasted plain text. A stray angle bracket in a comment is not enough; the
// input must contain actual document structure tags.
func LooksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// StripHTML reduces a scraped HTML page to its visible text. Navigation,
// scripts, and other chrome are removed first so forum posts and review
// bodies dominate the output.
func StripHTML(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, selector := range noiseSelectors {
		doc.Find(selector).Remove()
	}

	// Block-level elements become separate lines so CleanText can collapse
	// the result without gluing adjacent posts together.
	var sb strings.Builder
	doc.Find("body").Each(func(_ int, body *goquery.Selection) {
		body.Find("p, li, h1, h2, h3, h4, blockquote, td, div").Each(func(_ int, sel *goquery.Selection) {
			if sel.Children().Length() > 0 {
				return // only leaf blocks, parents would duplicate text
			}
			text := strings.TrimSpace(sel.Text())
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		})
	})

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		// No block structure found; fall back to the document's full text.
		text = doc.Text()
	}
	return text, nil
}
