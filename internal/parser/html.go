package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	skippedTags = map[string]bool{
		"head": true, "title": true, "script": true, "style": true, "noscript": true, "template": true,
	}
	lineTags = map[string]bool{
		"p": true, "div": true, "br": true, "hr": true, "li": true, "ul": true, "ol": true,
		"table": true, "tr": true, "td": true, "th": true, "blockquote": true, "section": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
)

// HTMLParser flattens HTML email bodies to plain text, one block per line
type HTMLParser struct{}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Parse returns the visible text of html. Inline elements stay on one line
// so a code split across spans is kept whole; block elements and table cells
// each start a new line.
func (p *HTMLParser) Parse(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var b strings.Builder
	writeText(&b, doc.Selection)
	return tidyLines(b.String()), nil
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			b.WriteString(stripInvisible(node.Text()))
		case name == "#comment", skippedTags[name]:
		case lineTags[name]:
			b.WriteByte('\n')
			writeText(b, node)
			b.WriteByte('\n')
		default:
			writeText(b, node)
		}
	})
}

// stripInvisible drops format and filler characters that mail senders
// scatter inside codes, e.g. 48\u200b2913
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Variation_Selector, r):
			return -1
		case r == 0x034F, r == 0x115F, r == 0x1160, r == 0x17B4, r == 0x17B5, r == 0x3164, r == 0xFFA0:
			return -1
		}
		return r
	}, s)
}

// tidyLines collapses runs of whitespace (nbsp included) and drops blank lines
func tidyLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}
