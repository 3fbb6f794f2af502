package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/corpusgest/internal/builder"
	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/indexer"
)

// Sequence scopes accepted in config and manifests.
const (
	ScopeSiblings = "siblings"
	ScopeCorpus   = "corpus"
)

var corpusName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Manifest lists the corpora a batch import loads.
type Manifest struct {
	Catalog Catalog  `yaml:"catalog" json:"catalog"`
	Corpora []Corpus `yaml:"corpora" json:"corpora"`
}

// Catalog is the chapter-list record that links every imported corpus.
// An empty Path skips it.
type Catalog struct {
	Path   string         `yaml:"path" json:"path"`
	Titles doctree.Titles `yaml:"titles" json:"titles"`
}

// Corpus is one source document and how to index it.
type Corpus struct {
	Name      string `yaml:"name" json:"name"`
	File      string `yaml:"file" json:"file"`
	Format    string `yaml:"format" json:"format"`
	MountPath string `yaml:"mount_path" json:"mount_path"`

	// Titles replace whatever root titles the builder produced.
	Titles       doctree.Titles            `yaml:"titles" json:"titles"`
	Descriptions doctree.Titles            `yaml:"descriptions" json:"descriptions"`
	Metadata     string                    `yaml:"metadata" json:"metadata"`
	Translations []builder.TranslationFile `yaml:"translations" json:"translations"`
	Translator   string                    `yaml:"translator" json:"translator"`

	IndexRules `yaml:",inline"`

	// Replace drops everything under MountPath before storing.
	Replace bool `yaml:"replace" json:"replace"`
}

// IndexRules tune how one corpus is indexed. Blank values keep the
// indexer's defaults.
type IndexRules struct {
	SequencePattern string   `yaml:"sequence_pattern" json:"sequence_pattern"`
	NoSequenceCheck bool     `yaml:"no_sequence_check" json:"no_sequence_check"`
	SequenceScope   string   `yaml:"sequence_scope" json:"sequence_scope"`
	CrumbLanguage   string   `yaml:"crumb_language" json:"crumb_language"`
	Countable       []string `yaml:"countable" json:"countable"`
}

// LoadManifest reads and validates a YAML manifest. Relative file paths are
// resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// ParseManifest decodes and validates a YAML manifest. Unknown keys are an
// error.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

func (m *Manifest) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range m.Corpora {
		c := &m.Corpora[i]
		c.File = abs(c.File)
		c.Metadata = abs(c.Metadata)
		for j := range c.Translations {
			c.Translations[j].Path = abs(c.Translations[j].Path)
		}
	}
}

func (m Manifest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Catalog),
		validation.Field(&m.Corpora, validation.Required, validation.By(uniqueCorpora)),
	)
}

func (c Catalog) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.By(mountPath)),
	)
}

func (c Corpus) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Match(corpusName)),
		validation.Field(&c.File, validation.Required),
		validation.Field(&c.Format, validation.In(
			builder.FormatJSON, builder.FormatMarkdown, builder.FormatHTML, builder.FormatDOCX,
			builder.FormatPDF, builder.FormatText, builder.FormatQuran,
		)),
		validation.Field(&c.MountPath, validation.Required, validation.By(mountPath)),
		validation.Field(&c.Metadata, validation.When(c.Format == builder.FormatQuran, validation.Required)),
		validation.Field(&c.Translations, validation.Each(validation.By(translationFile))),
		validation.Field(&c.SequencePattern, validation.By(sequencePattern)),
		validation.Field(&c.SequenceScope, validation.In(ScopeSiblings, ScopeCorpus)),
		validation.Field(&c.CrumbLanguage, validation.In(doctree.LangEN, doctree.LangAR, doctree.LangENT, doctree.LangFA)),
		validation.Field(&c.Countable, validation.Each(validation.By(leafKind))),
	)
}

// ValidateMountPath checks p is a usable corpus mount: absolute, without
// ':' and without a trailing slash.
func ValidateMountPath(p string) error {
	return validation.Validate(p, validation.Required, validation.By(mountPath))
}

func mountPath(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	if !strings.HasPrefix(p, "/") {
		return errors.New("must start with /")
	}
	if strings.Contains(p, ":") {
		return errors.New("must not contain ':'")
	}
	if strings.HasSuffix(p, "/") {
		return errors.New("must not end with /")
	}
	return nil
}

func translationFile(value any) error {
	t, _ := value.(builder.TranslationFile)
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required),
		validation.Field(&t.Lang, validation.Required),
		validation.Field(&t.Path, validation.Required),
	)
}

func sequencePattern(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	re, err := regexp.Compile(s)
	if err != nil {
		return err
	}
	if re.NumSubexp() < 1 {
		return errors.New("needs a capture group for the chapter number")
	}
	return nil
}

func leafKind(value any) error {
	s, _ := value.(string)
	if s == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func uniqueCorpora(value any) error {
	corpora, _ := value.([]Corpus)
	names := map[string]bool{}
	mounts := map[string]bool{}
	for _, c := range corpora {
		if names[c.Name] {
			return fmt.Errorf("duplicate corpus name %q", c.Name)
		}
		names[c.Name] = true
		if mounts[c.MountPath] {
			return fmt.Errorf("duplicate mount_path %q", c.MountPath)
		}
		mounts[c.MountPath] = true
	}
	return nil
}

// BuilderOptions returns the builder settings for c.
func (c Corpus) BuilderOptions(pdfFallback bool) builder.Options {
	return builder.Options{
		Translator:   c.Translator,
		Metadata:     c.Metadata,
		Translations: c.Translations,
		PDFFallback:  pdfFallback,
	}
}

// Options turns r into indexer options, falling back to the process-wide
// scope and crumb language.
func (r IndexRules) Options(defaultScope, defaultCrumbLang string) ([]indexer.Option, error) {
	var opts []indexer.Option
	switch {
	case r.NoSequenceCheck:
		opts = append(opts, indexer.WithSequencePattern(nil))
	case r.SequencePattern != "":
		re, err := regexp.Compile(r.SequencePattern)
		if err != nil {
			return nil, fmt.Errorf("sequence_pattern: %w", err)
		}
		opts = append(opts, indexer.WithSequencePattern(re))
	}

	scope := r.SequenceScope
	if scope == "" {
		scope = defaultScope
	}
	switch scope {
	case "", ScopeSiblings:
	case ScopeCorpus:
		opts = append(opts, indexer.WithSequenceScope(indexer.ScopeCorpus))
	default:
		return nil, fmt.Errorf("unknown sequence scope %q", scope)
	}

	lang := r.CrumbLanguage
	if lang == "" {
		lang = defaultCrumbLang
	}
	if lang != "" {
		opts = append(opts, indexer.WithCrumbLanguage(lang))
	}

	if len(r.Countable) > 0 {
		kinds := make(map[doctree.Kind]bool, len(r.Countable))
		for _, k := range r.Countable {
			kinds[doctree.Kind(k)] = true
		}
		opts = append(opts, indexer.WithCountable(func(k doctree.Kind) bool { return kinds[k] }))
	}
	return opts, nil
}
