package builder

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownBuilder reads a heading outline with goldmark. Headings become
// books and chapters; every other block becomes a verse, or a hadith when
// written in Arabic script.
type MarkdownBuilder struct{}

func (b *MarkdownBuilder) Build(r io.Reader, name string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	o := newOutline(baseTitle(name), "")

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			o.heading(node.Level, extractText(node, src))
		default:
			t := extractText(n, src)
			if isArabic(t) {
				o.arabic(t)
			} else {
				o.text(t)
			}
		}
	}
	return o.tree(), nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	// Code blocks carry raw lines and no inline children.
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		if c.Type() == ast.TypeBlock {
			buf.WriteString("\n")
		}
		buf.WriteString(extractText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
