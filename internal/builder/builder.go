// Package builder reads source documents into raw, unindexed doctree nodes.
package builder

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// Builder converts a source document into a raw corpus tree.
type Builder interface {
	Build(r io.Reader, name string) (*doctree.Node, error)
}

// Formats accepted by ForFormat.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatDOCX     = "docx"
	FormatPDF      = "pdf"
	FormatText     = "text"
	FormatQuran    = "quran"
)

// TranslationFile is a line-per-verse translation aligned with a Quran text.
type TranslationFile struct {
	Name string `yaml:"name" json:"name"`
	Lang string `yaml:"lang" json:"lang"`
	Path string `yaml:"path" json:"path"`
}

// Options carry the per-corpus settings some builders need.
type Options struct {
	// Translator names the English translation attached to Arabic
	// paragraphs by the html builder.
	Translator string
	// Metadata is the path of the quran-data.xml sura table.
	Metadata string
	// Translations are extra line-aligned translation files (quran).
	Translations []TranslationFile
	// PDFFallback shells out to pdftotext when the Go reader fails.
	PDFFallback bool
}

var extFormats = map[string]string{
	".json":     FormatJSON,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".docx":     FormatDOCX,
	".pdf":      FormatPDF,
	".txt":      FormatText,
}

// ForFormat returns the builder for a named format.
func ForFormat(format string, opts Options) (Builder, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return &JSONBuilder{}, nil
	case FormatMarkdown, "md":
		return &MarkdownBuilder{}, nil
	case FormatHTML:
		return &HTMLBuilder{Translator: opts.Translator}, nil
	case FormatDOCX:
		return &DOCXBuilder{Translator: opts.Translator}, nil
	case FormatPDF:
		return &PDFBuilder{FallbackPdftotext: opts.PDFFallback}, nil
	case FormatText, "txt":
		return &TextBuilder{}, nil
	case FormatQuran:
		return &QuranBuilder{Metadata: opts.Metadata, Translations: opts.Translations}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatForFile guesses a format from a filename extension.
func FormatForFile(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extFormats[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// ForFile returns the builder for a filename's extension.
func ForFile(filename string, opts Options) (Builder, error) {
	format, err := FormatForFile(filename)
	if err != nil {
		return nil, err
	}
	return ForFormat(format, opts)
}

// baseTitle strips directory and extension from a source name.
func baseTitle(name string) string {
	name = filepath.Base(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
