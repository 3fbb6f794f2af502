package builder

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/corpusgest/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLBuilder reads h1-h6 as the outline. A paragraph marked dir="rtl" or
// lang="ar" starts a new hadith; plain paragraphs that follow it are its
// English translation, credited to Translator.
type HTMLBuilder struct {
	Translator string
}

func (b *HTMLBuilder) Build(r io.Reader, name string) (*doctree.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(name)
	if t := findTitle(doc); t != "" {
		title = t
	}
	o := newOutline(title, b.Translator)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				o.heading(level, textContent(n))
				return
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td", "blockquote":
				t := textContent(n)
				if isRTL(n) || isArabic(t) {
					o.arabic(t)
				} else {
					o.text(t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return o.tree(), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func isRTL(n *html.Node) bool {
	for _, a := range n.Attr {
		switch {
		case a.Key == "dir" && strings.EqualFold(a.Val, "rtl"):
			return true
		case a.Key == "lang" && strings.HasPrefix(strings.ToLower(a.Val), "ar"):
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
