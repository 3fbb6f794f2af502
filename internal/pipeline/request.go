package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/indexer"
)

// NewRequest turns a validated manifest entry into an import request,
// filling unset indexing rules from cfg.
func NewRequest(c config.Corpus, cfg config.Config, force bool) (Request, error) {
	opts, err := c.IndexRules.Options(cfg.SequenceScope, cfg.CrumbLanguage)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Corpus:       c.Name,
		Format:       c.Format,
		Filename:     filepath.Base(c.File),
		MountPath:    c.MountPath,
		Titles:       c.Titles,
		Descriptions: c.Descriptions,
		Builder:      c.BuilderOptions(cfg.PDFFallbackPdftotext),
		Indexer:      opts,
		Rules:        effectiveRules(c.IndexRules, cfg),
		Replace:      c.Replace,
		Force:        force,
	}, nil
}

// IndexFile builds and indexes one corpus from disk without storing it.
func IndexFile(c config.Corpus, cfg config.Config, log *slog.Logger) (*indexer.Result, error) {
	req, err := NewRequest(c, cfg, false)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.File, err)
	}
	root, _, err := Build(req, data)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", c.File, err)
	}
	return Index(root, req.MountPath, req.Indexer, log)
}

// effectiveRules fills the rules' blank defaults from cfg, so two requests
// that index the same way compare equal.
func effectiveRules(r config.IndexRules, cfg config.Config) config.IndexRules {
	if r.SequenceScope == "" {
		r.SequenceScope = cfg.SequenceScope
	}
	if r.CrumbLanguage == "" {
		r.CrumbLanguage = cfg.CrumbLanguage
	}
	r.Countable = slices.Clone(r.Countable)
	return r
}
