package adapter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FlattenHTML turns an HTML job description into plain text: list items
// become bullets, paragraphs become blank-line separated blocks, and empty
// lines are dropped.
func FlattenHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n• " + escapeText(strings.TrimSpace(s.Text())) + "\n")
	})
	doc.Find("p, br, div").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n" + escapeText(strings.TrimSpace(s.Text())) + "\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return htmlEscaper.Replace(s)
}
