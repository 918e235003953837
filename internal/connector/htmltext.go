package connector

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLToText strips markup from BookStack page HTML and returns plain text,
// one line per block, with script and style contents removed. The mapper
// requires content to already be text; this is the normalizer connectors run
// before handing records over.
func HTMLToText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// Malformed markup degrades to the raw text rather than losing the page.
		return strings.TrimSpace(content)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return b.String()
}
