package blog

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the text content of an HTML fragment.
// Input that fails to parse is returned unchanged.
func StripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") && !strings.Contains(fragment, "&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Find("body").Text()
}

// ToMarkdown converts editor HTML into light markdown for terminal rendering.
// Only the block structure the editor produces is kept: headings, paragraphs,
// list items, block quotes, and code blocks. Inline formatting is flattened to text.
func ToMarkdown(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var blocks []string
	doc.Find("body").Children().Each(func(_ int, s *goquery.Selection) {
		if b := blockMarkdown(s); b != "" {
			blocks = append(blocks, b)
		}
	})
	if len(blocks) == 0 {
		return strings.TrimSpace(doc.Find("body").Text())
	}
	return strings.Join(blocks, "\n\n")
}

func blockMarkdown(s *goquery.Selection) string {
	text := strings.TrimSpace(s.Text())
	switch goquery.NodeName(s) {
	case "h1":
		return "# " + text
	case "h2":
		return "## " + text
	case "h3", "h4", "h5", "h6":
		return "### " + text
	case "ul", "ol":
		ordered := goquery.NodeName(s) == "ol"
		var items []string
		s.Find("li").Each(func(i int, li *goquery.Selection) {
			marker := "- "
			if ordered {
				marker = strconv.Itoa(i+1) + ". "
			}
			items = append(items, marker+strings.TrimSpace(li.Text()))
		})
		return strings.Join(items, "\n")
	case "blockquote":
		return "> " + text
	case "pre":
		return "```\n" + strings.TrimRight(s.Text(), "\n") + "\n```"
	case "br":
		return ""
	default:
		return text
	}
}
