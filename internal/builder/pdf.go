package builder

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dgallion1/corpusgest/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFBuilder makes each page a chapter and each paragraph on it a verse.
// It tries the Go library first, then pdftotext if enabled.
type PDFBuilder struct {
	FallbackPdftotext bool
}

func (b *PDFBuilder) Build(r io.Reader, name string) (*doctree.Node, error) {
	// ledongthuc/pdf requires a file on disk.
	tmp, err := os.CreateTemp("", "corpusgest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && b.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return pagesTree(baseTitle(name), strings.Split(text, "\f")), nil
}

// pagesTree turns form-feed separated page text into a chapter list.
// Blank pages are kept as empty chapters so page numbers stay aligned.
func pagesTree(title string, pages []string) *doctree.Node {
	root := doctree.NewBranch(doctree.KindChapterList, titlesFor(title))
	for i, page := range pages {
		titles := doctree.Titles{doctree.LangEN: "Page " + strconv.Itoa(i+1)}
		paras := splitParagraphs(page)
		if len(paras) == 0 {
			root.Append(doctree.NewEmpty(doctree.KindChapter, titles))
			continue
		}
		ch := doctree.NewLeaves(doctree.KindChapter, titles)
		for _, p := range paras {
			ch.AppendLeaf(doctree.NewLeaf(doctree.KindVerse, p))
		}
		root.Append(ch)
	}
	return root
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if i > 1 {
			buf.WriteString("\f")
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
