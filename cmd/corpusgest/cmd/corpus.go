package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/builder"
	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/doctree"
)

// corpusFlags describe a single corpus on the command line, mirroring one
// manifest entry.
type corpusFlags struct {
	name         string
	format       string
	mount        string
	title        string
	metadata     string
	translations []string
	translator   string
	rules        config.IndexRules
}

func (f *corpusFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "corpus name (default: file base name)")
	fl.StringVar(&f.format, "format", "", "source format (json, markdown, html, docx, pdf, text, quran); guessed from the extension when empty")
	fl.StringVar(&f.mount, "mount", "", "mount path (default: /<name>)")
	fl.StringVar(&f.title, "title", "", "English title for the corpus root")
	fl.StringVar(&f.metadata, "metadata", "", "quran-data.xml sura table (quran format)")
	fl.StringArrayVar(&f.translations, "translation", nil, "line-aligned translation as name:lang:path (repeatable, quran format)")
	fl.StringVar(&f.translator, "translator", "", "translator name for paired Arabic/English paragraphs")
	fl.StringVar(&f.rules.SequencePattern, "pattern", "", `chapter number pattern with one capture group (default "Chapter (\d+)")`)
	fl.BoolVar(&f.rules.NoSequenceCheck, "no-sequence-check", false, "skip chapter numbering checks")
	fl.StringVar(&f.rules.SequenceScope, "scope", "", "sequence scope: siblings or corpus (default from SEQUENCE_SCOPE)")
	fl.StringVar(&f.rules.CrumbLanguage, "crumb-lang", "", "language of generated crumb titles (default from CRUMB_LANGUAGE)")
	fl.StringSliceVar(&f.rules.Countable, "countable", nil, "leaf kinds that advance the leaf counter (default verse,hadith)")
}

var nonName = regexp.MustCompile(`[^a-z0-9_-]+`)

func (f *corpusFlags) corpus(file string) (config.Corpus, error) {
	name := f.name
	if name == "" {
		base := filepath.Base(file)
		name = strings.Trim(nonName.ReplaceAllString(strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))), "-"), "-")
	}
	mount := f.mount
	if mount == "" {
		mount = "/" + name
	}
	c := config.Corpus{
		Name:       name,
		File:       file,
		Format:     f.format,
		MountPath:  mount,
		Metadata:   f.metadata,
		Translator: f.translator,
		IndexRules: f.rules,
	}
	if f.title != "" {
		c.Titles = doctree.Titles{doctree.LangEN: f.title}
	}
	for _, t := range f.translations {
		parts := strings.SplitN(t, ":", 3)
		if len(parts) != 3 {
			return config.Corpus{}, fmt.Errorf("translation %q: want name:lang:path", t)
		}
		c.Translations = append(c.Translations, builder.TranslationFile{Name: parts[0], Lang: parts[1], Path: parts[2]})
	}
	if err := c.Validate(); err != nil {
		return config.Corpus{}, err
	}
	return c, nil
}

func writeJSON(path string, v any) error {
	out := os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
